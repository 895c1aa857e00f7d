package audit

import (
	"context"
	"log/slog"
)

// SlogStore writes audit events to the structured log. It is the default sink
// when no durable audit store is configured.
type SlogStore struct {
	logger *slog.Logger
}

// NewSlogStore constructs a log-backed audit sink.
func NewSlogStore(logger *slog.Logger) *SlogStore {
	return &SlogStore{logger: logger}
}

func (s *SlogStore) Append(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, "audit",
		"event_id", event.ID,
		"action", string(event.Action),
		"owner_id", event.OwnerID.String(),
		"kind", string(event.Kind),
		"record_id", event.RecordID.String(),
		"from_state", string(event.FromState),
		"to_state", string(event.ToState),
		"request_id", event.RequestID,
		"client_ip", event.ClientIP,
		"device", event.Device,
	)
	return nil
}
