package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shuttle-ledger/internal/domain"
)

type recordingPublisher struct {
	topics   []string
	payloads [][]byte
	err      error
}

func (r *recordingPublisher) Publish(topic string, _ byte, _ bool, payload []byte) error {
	if r.err != nil {
		return r.err
	}
	r.topics = append(r.topics, topic)
	r.payloads = append(r.payloads, payload)
	return nil
}

func TestAlertPublisher_PublishesJSON(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewAlertPublisher(rec, "shuttle/alerts/", 1, zap.NewNop())

	p.AlertCreated(context.Background(), &domain.Alert{AlertID: "a1", SchoolID: "sc1", Type: domain.AlertRouteChange, Year: 2025, Month: 3})

	require.Len(t, rec.topics, 1)
	assert.Equal(t, "shuttle/alerts/sc1/route_change", rec.topics[0])
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.payloads[0], &got))
	assert.Equal(t, "a1", got["alert_id"])
}

func TestAlertPublisher_FailureIsSwallowed(t *testing.T) {
	p := NewAlertPublisher(&recordingPublisher{err: errors.New("not connected")}, "x", 0, zap.NewNop())
	assert.NotPanics(t, func() {
		p.AlertCreated(context.Background(), &domain.Alert{AlertID: "a1", Type: domain.AlertPayment})
	})
	assert.Equal(t, "x/unassigned/payment", p.Topic(&domain.Alert{Type: domain.AlertPayment}))
}
