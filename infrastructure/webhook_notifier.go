package infrastructure

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"spinningrats/domain/entities"
	"spinningrats/domain/interfaces"
	"spinningrats/infrastructure/observability"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// DefaultNotificationQueueSize bounds the pending login announcements
const DefaultNotificationQueueSize = 64

// WebhookExecutor is the part of a discordgo session the notifier needs
type WebhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// WebhookNotifier announces logins through a Discord webhook. Notify only
// enqueues; a single worker posts the messages.
type WebhookNotifier struct {
	executor  WebhookExecutor
	webhookID string
	token     string
	metrics   *observability.MetricsProvider
	timeout   time.Duration

	queue     chan entities.LoginNotification
	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

var _ interfaces.Notifier = (*WebhookNotifier)(nil)

// ParseWebhookURL extracts the id and token from a Discord webhook URL
func ParseWebhookURL(raw string) (string, string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("invalid webhook URL: %w", err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("webhook URL %q does not contain /webhooks/{id}/{token}", u.Redacted())
}

// NewWebhookNotifier creates a notifier posting to the webhook at webhookURL
func NewWebhookNotifier(executor WebhookExecutor, webhookURL string, queueSize int, metrics *observability.MetricsProvider) (*WebhookNotifier, error) {
	id, token, err := ParseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}
	if queueSize <= 0 {
		queueSize = DefaultNotificationQueueSize
	}

	return &WebhookNotifier{
		executor:  executor,
		webhookID: id,
		token:     token,
		metrics:   metrics,
		timeout:   10 * time.Second,
		queue:     make(chan entities.LoginNotification, queueSize),
		closed:    make(chan struct{}),
	}, nil
}

// Start launches the worker
func (n *WebhookNotifier) Start(ctx context.Context) {
	n.wg.Add(1)
	go n.run(ctx)
}

// Notify queues a notification, dropping it if the queue is full
func (n *WebhookNotifier) Notify(notification entities.LoginNotification) {
	select {
	case <-n.closed:
		return
	default:
	}

	select {
	case n.queue <- notification:
	default:
		n.metrics.RecordNotification(observability.ResultDropped)
		log.WithFields(log.Fields{
			"kind":        notification.Kind,
			"displayName": notification.DisplayName,
		}).Warn("Notification queue full, dropping login announcement")
	}
}

// Close stops accepting notifications and waits for the worker to post what was queued
func (n *WebhookNotifier) Close() {
	n.closeOnce.Do(func() {
		close(n.closed)
	})
	n.wg.Wait()
}

func (n *WebhookNotifier) run(ctx context.Context) {
	defer n.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-n.closed:
			n.drain()
			return
		case notification := <-n.queue:
			n.send(notification)
		}
	}
}

func (n *WebhookNotifier) drain() {
	for {
		select {
		case notification := <-n.queue:
			n.send(notification)
		default:
			return
		}
	}
}

func (n *WebhookNotifier) send(notification entities.LoginNotification) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	params := &discordgo.WebhookParams{
		Content: notification.Content(),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{},
		},
	}

	if _, err := n.executor.WebhookExecute(n.webhookID, n.token, false, params, discordgo.WithContext(ctx)); err != nil {
		n.metrics.RecordNotification(observability.ResultFailed)
		log.WithError(err).WithFields(log.Fields{
			"kind":        notification.Kind,
			"displayName": notification.DisplayName,
		}).Error("Failed to post login announcement")
		return
	}

	n.metrics.RecordNotification(observability.ResultSent)
	log.WithFields(log.Fields{
		"kind":        notification.Kind,
		"displayName": notification.DisplayName,
	}).Debug("Posted login announcement")
}

// NoopNotifier discards notifications; wired when no webhook is configured
type NoopNotifier struct{}

// Notify does nothing
func (NoopNotifier) Notify(entities.LoginNotification) {}
