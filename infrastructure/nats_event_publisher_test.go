package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"spinningrats/domain/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedMessage struct {
	subject string
	data    []byte
}

type fakeMessagePublisher struct {
	messages []capturedMessage
	err      error
}

func (f *fakeMessagePublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, capturedMessage{subject: subject, data: data})
	return nil
}

func TestNATSEventPublisher_Envelope(t *testing.T) {
	t.Parallel()
	client := &fakeMessagePublisher{}
	publisher := NewNATSEventPublisher(client, NewEventSubjectMapper())

	err := publisher.Publish(events.UserLoggedInEvent{DiscordID: "111", DisplayName: "alice", FirstLogin: true})
	require.NoError(t, err)
	require.Len(t, client.messages, 1)
	assert.Equal(t, "rats.users.logged_in", client.messages[0].subject)

	var envelope EventEnvelope
	require.NoError(t, json.Unmarshal(client.messages[0].data, &envelope))
	_, err = uuid.Parse(envelope.EventID)
	assert.NoError(t, err)
	assert.Equal(t, string(events.EventTypeUserLoggedIn), envelope.EventType)
	assert.Equal(t, "spinningrats", envelope.SourceService)

	var payload events.UserLoggedInEvent
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, "alice", payload.DisplayName)
	assert.True(t, payload.FirstLogin)
}

func TestNATSEventPublisher_Errors(t *testing.T) {
	t.Parallel()

	missingStream := NewNATSEventPublisher(&fakeMessagePublisher{err: errors.New("nats: no response from stream")}, NewEventSubjectMapper())
	assert.NoError(t, missingStream.Publish(events.ViewerCountChangedEvent{ActiveViewers: 1}))

	broken := NewNATSEventPublisher(&fakeMessagePublisher{err: errors.New("connection closed")}, NewEventSubjectMapper())
	assert.ErrorContains(t, broken.Publish(events.ViewerCountChangedEvent{ActiveViewers: 1}), "connection closed")
}

func TestEventSubjectMapper(t *testing.T) {
	t.Parallel()
	mapper := NewEventSubjectMapper()

	tests := []struct {
		event events.Event
		want  string
	}{
		{events.UserLoggedInEvent{}, "rats.users.logged_in"},
		{events.UserLoggedOutEvent{}, "rats.users.logged_out"},
		{events.HighscoreChangedEvent{}, "rats.highscore.changed"},
		{events.ViewerCountChangedEvent{}, "rats.viewers.changed"},
		{events.LeaderboardUpdatedEvent{}, "rats.leaderboard.updated"},
	}
	for _, tt := range tests {
		subject := mapper.MapEventToSubject(tt.event)
		assert.Equal(t, tt.want, subject)
		assert.Contains(t, mapper.GetAllSubjects(), subject)
	}
}
