package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/civicfix/civicfix-server/internal/config"
	"github.com/civicfix/civicfix-server/internal/events"
)

// NotificationService delivers lifecycle events to the outside world.
type NotificationService struct {
	logger     *zap.Logger
	cfg        config.NotificationConfig
	timeout    time.Duration
	newBackOff func() backoff.BackOff
}

// NewNotificationService creates the service.
func NewNotificationService(logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NotificationService{
		logger:  logger,
		cfg:     cfg,
		timeout: timeout,
		newBackOff: func() backoff.BackOff {
			// BackOff values are stateful; build one per delivery.
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = 200 * time.Millisecond
			bo.MaxElapsedTime = 30 * time.Second
			return bo
		},
	}
}

// Deliver logs the event and, when NOTIFY_WEBHOOK_URL is set, posts it to the webhook.
func (n *NotificationService) Deliver(ctx context.Context, event events.Event) error {
	n.logger.Info("issue event",
		zap.String("event_type", string(event.Type)),
		zap.String("issue_id", event.IssueID),
		zap.String("actor", event.Actor),
		zap.Any("payload", event.Payload))

	return n.sendWebhookNotification(ctx, event)
}

// sendWebhookNotification POSTs the event as JSON, retrying network errors and 5xx responses.
func (n *NotificationService) sendWebhookNotification(ctx context.Context, event events.Event) error {
	url := strings.TrimSpace(n.cfg.WebhookURL)
	if url == "" {
		return nil
	}

	var bo backoff.BackOff = n.newBackOff()
	if n.cfg.MaxRetries >= 0 {
		bo = backoff.WithMaxRetries(bo, uint64(n.cfg.MaxRetries))
	}

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		agent := fiber.Post(url)
		agent.Timeout(n.timeout)
		agent.Set("X-Event-Type", string(event.Type))
		agent.JSON(event)
		if err := agent.Parse(); err != nil {
			fiber.ReleaseAgent(agent)
			return backoff.Permanent(fmt.Errorf("parse webhook url: %w", err))
		}

		status, _, errs := agent.Bytes()
		if len(errs) > 0 {
			return fmt.Errorf("post webhook: %w", errs[0])
		}
		if status >= fiber.StatusInternalServerError {
			return fmt.Errorf("webhook responded %d", status)
		}
		if status >= fiber.StatusBadRequest {
			return backoff.Permanent(fmt.Errorf("webhook rejected event with %d", status))
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		n.logger.Warn("webhook delivery failed",
			zap.String("event_type", string(event.Type)),
			zap.String("issue_id", event.IssueID),
			zap.Int("attempts", attempt),
			zap.Error(err))
		return err
	}
	n.logger.Debug("webhook delivered",
		zap.String("event_type", string(event.Type)),
		zap.Int("attempts", attempt))
	return nil
}
