package infrastructure

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"spinningrats/domain/entities"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWebhookExecutor struct {
	mu       sync.Mutex
	calls    []*discordgo.WebhookParams
	ids      []string
	release  chan struct{}
	started  chan struct{}
	failWith error
}

func (f *fakeWebhookExecutor) WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, data)
	f.ids = append(f.ids, webhookID+"/"+token)
	return &discordgo.Message{}, f.failWith
}

func (f *fakeWebhookExecutor) contents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Content
	}
	return out
}

func TestParseWebhookURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		url       string
		wantID    string
		wantToken string
		wantErr   bool
	}{
		{
			name:      "discord url",
			url:       "https://discord.com/api/webhooks/123456/abc-DEF_token",
			wantID:    "123456",
			wantToken: "abc-DEF_token",
		},
		{
			name:      "versioned api path",
			url:       "https://discordapp.com/api/v10/webhooks/42/tok",
			wantID:    "42",
			wantToken: "tok",
		},
		{
			name:    "missing token",
			url:     "https://discord.com/api/webhooks/123456",
			wantErr: true,
		},
		{
			name:    "not a webhook",
			url:     "https://example.com/hello",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			id, token, err := ParseWebhookURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantToken, token)
		})
	}
}

func TestWebhookNotifier_PostsInOrder(t *testing.T) {
	t.Parallel()
	executor := &fakeWebhookExecutor{}
	notifier, err := NewWebhookNotifier(executor, "https://discord.com/api/webhooks/1/t", 8, nil)
	require.NoError(t, err)

	notifier.Start(context.Background())
	notifier.Notify(entities.NewLoginNotification("Squeaky", true))
	notifier.Notify(entities.NewLoginNotification("Whiskers", false))
	notifier.Close()

	assert.Equal(t, []string{
		"🧀 **Squeaky** joined the rat zone.",
		"🐀 **Whiskers** is back in the rat zone.",
	}, executor.contents())
	assert.Equal(t, "1/t", executor.ids[0])
}

func TestWebhookNotifier_DropsWhenFull(t *testing.T) {
	t.Parallel()
	executor := &fakeWebhookExecutor{
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	notifier, err := NewWebhookNotifier(executor, "https://discord.com/api/webhooks/1/t", 1, nil)
	require.NoError(t, err)
	notifier.Start(context.Background())

	// First one is picked up by the worker and blocks in the executor
	notifier.Notify(entities.NewLoginNotification("a", true))
	select {
	case <-executor.started:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never picked up the first notification")
	}

	// Second fills the queue, third must be dropped without blocking
	done := make(chan struct{})
	go func() {
		notifier.Notify(entities.NewLoginNotification("b", true))
		notifier.Notify(entities.NewLoginNotification("c", true))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a full queue")
	}

	close(executor.release)
	notifier.Close()

	assert.Equal(t, []string{
		"🧀 **a** joined the rat zone.",
		"🧀 **b** joined the rat zone.",
	}, executor.contents())
}

func TestWebhookNotifier_FailureIsSwallowed(t *testing.T) {
	t.Parallel()
	executor := &fakeWebhookExecutor{failWith: errors.New("429 too many requests")}
	notifier, err := NewWebhookNotifier(executor, "https://discord.com/api/webhooks/1/t", 4, nil)
	require.NoError(t, err)

	notifier.Start(context.Background())
	notifier.Notify(entities.NewLoginNotification("a", false))
	notifier.Close()

	assert.Len(t, executor.contents(), 1)

	// Notify after close is ignored
	assert.NotPanics(t, func() {
		notifier.Notify(entities.NewLoginNotification("late", false))
	})
}
