// Package notify fans created alerts out to the staff notification topic.
package notify

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"shuttle-ledger/internal/domain"
)

// Publisher what the notifier needs from an MQTT client
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// Notifier announces new alerts. Implementations never fail the caller.
type Notifier interface {
	AlertCreated(ctx context.Context, a *domain.Alert)
}

// Nop discards notifications
type Nop struct{}

func (Nop) AlertCreated(context.Context, *domain.Alert) {}

// AlertPublisher publishes each alert as JSON on <prefix>/<school_id>/<type>
type AlertPublisher struct {
	pub    Publisher
	prefix string
	qos    byte
	logger *zap.Logger
}

func NewAlertPublisher(pub Publisher, topicPrefix string, qos byte, logger *zap.Logger) *AlertPublisher {
	return &AlertPublisher{pub: pub, prefix: strings.TrimRight(topicPrefix, "/"), qos: qos, logger: logger}
}

// Topic for one alert
func (p *AlertPublisher) Topic(a *domain.Alert) string {
	school := a.SchoolID
	if school == "" {
		school = "unassigned"
	}
	return p.prefix + "/" + school + "/" + strings.ToLower(string(a.Type))
}

func (p *AlertPublisher) AlertCreated(_ context.Context, a *domain.Alert) {
	payload, err := json.Marshal(a)
	if err != nil {
		p.logger.Warn("alert encode failed", zap.String("alert_id", a.AlertID), zap.Error(err))
		return
	}
	if err := p.pub.Publish(p.Topic(a), p.qos, false, payload); err != nil {
		p.logger.Warn("alert fan-out failed",
			zap.String("alert_id", a.AlertID),
			zap.String("type", string(a.Type)),
			zap.Error(err),
		)
	}
}
