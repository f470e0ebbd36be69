package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/triagehq/request-triage/internal/config"
	"github.com/triagehq/request-triage/internal/events"
)

// NotificationService emits notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketSubmitted, n.handleTicketSubmitted)
	n.dispatcher.Subscribe(events.EventTicketUpdated, n.handleTicketUpdated)
	n.dispatcher.Subscribe(events.EventTicketCommentAdded, n.handleTicketCommentAdded)
	n.dispatcher.Subscribe(events.EventUserRoleChanged, n.handleUserRoleChanged)
}

func (n *NotificationService) handleTicketSubmitted(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketSubmitted", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketUpdated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketUpdated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketCommentAdded(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCommentAdded", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleUserRoleChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("UserRoleChanged", zap.String("actor", event.Actor.Email), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
