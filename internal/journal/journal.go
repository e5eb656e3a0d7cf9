// Package journal records saga progress to a Redis stream so partially applied
// multi-write operations can be found and reconciled by hand.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Step statuses
const (
	StatusStarted  = "started"
	StatusStepOK   = "step_ok"
	StatusFailed   = "step_failed"
	StatusFinished = "finished"
)

// Entry one journal line
type Entry struct {
	SagaID string
	Saga   string
	Step   string
	Status string
	Actor  string
	Detail map[string]any
	At     time.Time
}

// Journal sink for saga entries. Record never fails the caller.
type Journal interface {
	Record(ctx context.Context, e Entry)
}

// Nop discards entries
type Nop struct{}

func (Nop) Record(context.Context, Entry) {}

// StreamClient the subset of *redis.Client the journal uses
type StreamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XRange(ctx context.Context, stream, start, stop string) *redis.XMessageSliceCmd
}

// RedisJournal appends entries to one stream with XADD
type RedisJournal struct {
	client  StreamClient
	stream  string
	timeout time.Duration
	logger  *zap.Logger
}

func NewRedisJournal(client StreamClient, stream string, logger *zap.Logger) *RedisJournal {
	return &RedisJournal{client: client, stream: stream, timeout: time.Second, logger: logger}
}

// Record best effort; failures are logged and swallowed
func (j *RedisJournal) Record(ctx context.Context, e Entry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), j.timeout)
	defer cancel()

	values := map[string]interface{}{
		"saga_id": e.SagaID,
		"saga":    e.Saga,
		"step":    e.Step,
		"status":  e.Status,
		"actor":   e.Actor,
		"at":      e.At.UTC().Format(time.RFC3339Nano),
	}
	if len(e.Detail) > 0 {
		b, err := json.Marshal(e.Detail)
		if err == nil {
			values["detail"] = string(b)
		}
	}
	if err := j.client.XAdd(ctx, &redis.XAddArgs{Stream: j.stream, Values: values}).Err(); err != nil {
		j.logger.Warn("saga journal write failed",
			zap.String("saga_id", e.SagaID),
			zap.String("step", e.Step),
			zap.Error(err),
		)
	}
}

// SagaState folded view of one saga's entries
type SagaState struct {
	SagaID    string    `json:"saga_id"`
	Saga      string    `json:"saga"`
	Actor     string    `json:"actor"`
	StartedAt time.Time `json:"started_at"`
	Completed []string  `json:"completed"`
	FailedAt  string    `json:"failed_at,omitempty"`
	Error     string    `json:"error,omitempty"`
	Finished  bool      `json:"finished"`
}

// Unfinished sagas that never recorded "finished", oldest first
func (j *RedisJournal) Unfinished(ctx context.Context) ([]SagaState, error) {
	msgs, err := j.client.XRange(ctx, j.stream, "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("read saga journal %s: %w", j.stream, err)
	}
	states := Fold(msgs)
	out := make([]SagaState, 0)
	for _, s := range states {
		if !s.Finished {
			out = append(out, s)
		}
	}
	return out, nil
}

// Fold groups stream messages by saga id
func Fold(msgs []redis.XMessage) []SagaState {
	byID := make(map[string]*SagaState)
	order := make([]string, 0)
	for _, m := range msgs {
		id := field(m.Values, "saga_id")
		if id == "" {
			continue
		}
		s := byID[id]
		if s == nil {
			s = &SagaState{SagaID: id, Saga: field(m.Values, "saga"), Actor: field(m.Values, "actor"), Completed: []string{}}
			byID[id] = s
			order = append(order, id)
		}
		step := field(m.Values, "step")
		switch field(m.Values, "status") {
		case StatusStarted:
			if t, err := time.Parse(time.RFC3339Nano, field(m.Values, "at")); err == nil {
				s.StartedAt = t
			}
		case StatusStepOK:
			s.Completed = append(s.Completed, step)
		case StatusFailed:
			s.FailedAt = step
			var detail map[string]any
			if err := json.Unmarshal([]byte(field(m.Values, "detail")), &detail); err == nil {
				if msg, ok := detail["error"].(string); ok {
					s.Error = msg
				}
			}
		case StatusFinished:
			s.Finished = true
		}
	}
	out := make([]SagaState, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	sort.SliceStable(out, func(i, k int) bool { return out[i].StartedAt.Before(out[k].StartedAt) })
	return out
}

func field(values map[string]interface{}, key string) string {
	v, ok := values[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
