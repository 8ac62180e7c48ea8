package events

import (
	"context"
	"errors"
	"strings"

	"github.com/nithinycr7/discipline-ai-health-prod-sub001/domain"
	"go.uber.org/zap"
)

// ZapAuditLogger writes audit events as structured log lines.
type ZapAuditLogger struct {
	log *zap.Logger
}

func NewZapAuditLogger(log *zap.Logger) *ZapAuditLogger {
	return &ZapAuditLogger{log: log.Named("audit")}
}

// LogEvent implements domain.AuditLogger
func (l *ZapAuditLogger) LogEvent(ctx context.Context, event *domain.AuditEvent) error {
	fields := []zap.Field{
		zap.String("event_type", string(event.EventType)),
		zap.Bool("success", event.Success),
		zap.Time("timestamp", event.Timestamp),
	}
	if event.UserID != "" {
		fields = append(fields, zap.String("user_id", event.UserID))
	}
	if event.Role != "" {
		fields = append(fields, zap.String("role", string(event.Role)))
	}
	if event.Channel != "" {
		fields = append(fields, zap.String("channel", string(event.Channel)))
	}
	if len(event.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", event.Metadata))
	}
	if event.ErrorMsg != "" {
		fields = append(fields, zap.String("error", event.ErrorMsg))
		l.log.Warn("auth event", fields...)
		return nil
	}
	l.log.Info("auth event", fields...)
	return nil
}

// JSONPublisher is satisfied by *Publisher.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// BrokerAuditLogger forwards audit events to a message broker so downstream
// services (care reports, analytics) can react to registrations and logins.
type BrokerAuditLogger struct {
	pub JSONPublisher
}

func NewBrokerAuditLogger(pub JSONPublisher) *BrokerAuditLogger {
	return &BrokerAuditLogger{pub: pub}
}

// RoutingKey returns the topic key for an event, e.g. "auth.user_registered".
func RoutingKey(t domain.AuditEventType) string {
	return "auth." + strings.ToLower(string(t))
}

// LogEvent implements domain.AuditLogger
func (b *BrokerAuditLogger) LogEvent(ctx context.Context, event *domain.AuditEvent) error {
	return b.pub.PublishJSON(ctx, RoutingKey(event.EventType), event)
}

// MultiAuditLogger fans an event out to every sink and joins their errors.
type MultiAuditLogger []domain.AuditLogger

// LogEvent implements domain.AuditLogger
func (m MultiAuditLogger) LogEvent(ctx context.Context, event *domain.AuditEvent) error {
	var errs []error
	for _, l := range m {
		if err := l.LogEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ domain.AuditLogger = (*ZapAuditLogger)(nil)
	_ domain.AuditLogger = (*BrokerAuditLogger)(nil)
	_ domain.AuditLogger = MultiAuditLogger(nil)
	_ JSONPublisher      = (*Publisher)(nil)
)
