package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/medeez/gate/internal/audit/domain"
)

const defaultStream = "audit:events"

// Stream publishes events onto a Redis stream so an external consumer can
// persist them. A failed XADD is logged locally and the event payload is
// written to the log so it is never silently lost; the error still propagates
// to callers that need synchronous delivery.
type Stream struct {
	rc     *redis.Client
	stream string
	log    zerolog.Logger
	maxLen int64
}

func NewStream(rc *redis.Client, log zerolog.Logger) *Stream {
	return &Stream{rc: rc, stream: defaultStream, log: log, maxLen: 100_000}
}

func (s *Stream) Publish(ctx context.Context, e domain.Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	err = s.rc.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"id":    uuid.NewString(),
			"type":  e.EventType,
			"event": payload,
		},
	}).Err()
	if err != nil {
		// Local fallback so incident investigations still have the record.
		s.log.Error().Err(err).
			Str("event_type", e.EventType).
			RawJSON("event", payload).
			Msg("audit sink write failed")
	}
	return err
}
