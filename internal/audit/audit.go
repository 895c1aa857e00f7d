// Package audit captures append-only lifecycle events for vault records.
// Events carry metadata only; payload plaintext or ciphertext never appears.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"satsvault/internal/platform/privacy"
	"satsvault/internal/vault/models"
	id "satsvault/pkg/domain"
	"satsvault/pkg/requestcontext"
)

// Action labels what happened to a record.
type Action string

const (
	ActionRecordCreated   Action = "record_created"
	ActionStateTransition Action = "state_transition"
	ActionPayloadRotated  Action = "payload_rotated"
	ActionMetadataUpdated Action = "metadata_updated"
	ActionOwnerPurged     Action = "owner_purged"
	ActionDecryptFailed   Action = "decrypt_failed"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string
	Timestamp time.Time
	OwnerID   id.OwnerID
	Action    Action
	Kind      models.Kind
	RecordID  id.RecordID
	FromState models.State
	ToState   models.State
	RequestID string
	// ClientIP is stored anonymized (truncated network prefix), never raw.
	ClientIP string
	// Device is the browser/platform family parsed from the User-Agent,
	// never the raw header, to keep events low-cardinality.
	Device string
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Publisher builds events from request context and hands them to the store.
type Publisher struct {
	store Store
}

// NewPublisher constructs a Publisher over the given sink.
func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Record publishes one lifecycle event, enriched from the request context.
// Audit failures are returned so the caller can decide whether to log-and-go.
func (p *Publisher) Record(ctx context.Context, event Event) error {
	if p == nil || p.store == nil {
		return nil
	}
	event.ID = uuid.NewString()
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		event.ClientIP = privacy.AnonymizeIP(ip)
	}
	if ua := requestcontext.UserAgent(ctx); ua != "" {
		event.Device = deviceFamily(ua)
	}
	return p.store.Append(ctx, event)
}

// deviceFamily reduces a User-Agent to "browser/os" for audit events.
func deviceFamily(rawUA string) string {
	ua := useragent.New(rawUA)
	name, _ := ua.Browser()
	os := ua.OS()
	switch {
	case name != "" && os != "":
		return name + "/" + os
	case name != "":
		return name
	case os != "":
		return os
	default:
		return "unknown"
	}
}
