package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"satsvault/internal/vault/models"
	"satsvault/internal/vault/service"
	id "satsvault/pkg/domain"
	dErrors "satsvault/pkg/domain-errors"
	"satsvault/pkg/platform/httputil"
	"satsvault/pkg/requestcontext"
)

// Service defines the vault operations the handler delegates to.
type Service interface {
	CreateMintQuote(ctx context.Context, ownerID id.OwnerID, quoteID id.RecordID, plaintext []byte, initial models.State) (*service.RecordView, error)
	CreateMeltQuote(ctx context.Context, ownerID id.OwnerID, quoteID id.RecordID, plaintext []byte, initial models.State) (*service.RecordView, error)
	CreateProof(ctx context.Context, ownerID id.OwnerID, proofID id.RecordID, plaintext []byte, initial models.State) (*service.RecordView, error)
	RecordTransaction(ctx context.Context, ownerID id.OwnerID, txID id.RecordID, plaintext []byte) (*service.RecordView, error)
	TransitionState(ctx context.Context, ownerID id.OwnerID, kind models.Kind, recordID id.RecordID, target models.State) (*service.RecordView, error)
	GetRecord(ctx context.Context, ownerID id.OwnerID, kind models.Kind, recordID id.RecordID) (*service.RecordView, error)
	ListByState(ctx context.Context, ownerID id.OwnerID, kind models.Kind, state models.State, filter *models.ListFilter, limit int, cursor string) (*service.PageView, error)
	UpdatePayload(ctx context.Context, ownerID id.OwnerID, kind models.Kind, recordID id.RecordID, plaintext []byte) (*service.RecordView, error)
	GetOrInitMetadata(ctx context.Context, ownerID id.OwnerID) (*service.MetadataView, error)
	SetMetadata(ctx context.Context, ownerID id.OwnerID, mintURLs []string, defaultMintURL string) (*service.MetadataView, error)
	PurgeOwner(ctx context.Context, ownerID id.OwnerID) error
}

// pathKinds maps URL segments to record kinds.
var pathKinds = map[string]models.Kind{
	"mint-quotes":  models.KindMintQuote,
	"melt-quotes":  models.KindMeltQuote,
	"proofs":       models.KindProof,
	"transactions": models.KindTransaction,
}

// Handler handles vault record endpoints.
type Handler struct {
	logger *slog.Logger
	vault  Service
}

// New creates a new vault Handler.
func New(vault Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger: logger,
		vault:  vault,
	}
}

// Register registers the vault routes with the chi router. All routes assume
// the auth middleware already resolved the owner identity into the context.
func (h *Handler) Register(r chi.Router) {
	r.Get("/metadata", h.handleGetMetadata)
	r.Put("/metadata", h.handleSetMetadata)
	r.Delete("/", h.handlePurgeOwner)

	r.Post("/mint-quotes", h.createHandler(models.KindMintQuote))
	r.Post("/melt-quotes", h.createHandler(models.KindMeltQuote))
	r.Post("/proofs", h.createHandler(models.KindProof))
	r.Post("/transactions", h.createHandler(models.KindTransaction))

	r.Get("/{kind}", h.handleList)
	r.Get("/{kind}/{recordID}", h.handleGetRecord)
	r.Post("/{kind}/{recordID}/state", h.handleTransition)
	r.Put("/{kind}/{recordID}/payload", h.handleUpdatePayload)
}

// owner resolves the authenticated owner or writes the error response.
func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (id.OwnerID, bool) {
	ownerID := requestcontext.OwnerID(r.Context())
	if ownerID.IsNil() {
		h.logger.ErrorContext(r.Context(), "owner missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return "", false
	}
	return ownerID, true
}

// recordScope resolves the {kind}/{recordID} pair or writes the error response.
func (h *Handler) recordScope(w http.ResponseWriter, r *http.Request) (models.Kind, id.RecordID, bool) {
	kind, ok := pathKinds[chi.URLParam(r, "kind")]
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unknown record kind"))
		return "", "", false
	}
	recordID, err := id.ParseRecordID(chi.URLParam(r, "recordID"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", "", false
	}
	return kind, recordID, true
}

func (h *Handler) createHandler(kind models.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ownerID, ok := h.owner(w, r)
		if !ok {
			return
		}
		req, ok := httputil.DecodeAndValidate[createRecordRequest](w, r, h.logger)
		if !ok {
			return
		}
		recordID, err := id.ParseRecordID(req.ID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		var view *service.RecordView
		switch kind {
		case models.KindMintQuote:
			view, err = h.vault.CreateMintQuote(ctx, ownerID, recordID, req.Payload, models.State(req.State))
		case models.KindMeltQuote:
			view, err = h.vault.CreateMeltQuote(ctx, ownerID, recordID, req.Payload, models.State(req.State))
		case models.KindProof:
			view, err = h.vault.CreateProof(ctx, ownerID, recordID, req.Payload, models.State(req.State))
		default:
			if req.State != "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "transactions carry no state"))
				return
			}
			view, err = h.vault.RecordTransaction(ctx, ownerID, recordID, req.Payload)
		}
		if err != nil {
			h.logger.WarnContext(ctx, "failed to create record",
				"request_id", requestcontext.RequestID(ctx),
				"kind", string(kind),
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}

		httputil.WriteJSON(w, http.StatusCreated, toRecordResponse(view))
	}
}

func (h *Handler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	kind, recordID, ok := h.recordScope(w, r)
	if !ok {
		return
	}

	view, err := h.vault.GetRecord(ctx, ownerID, kind, recordID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(view))
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	kind, recordID, ok := h.recordScope(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndValidate[transitionRequest](w, r, h.logger)
	if !ok {
		return
	}

	view, err := h.vault.TransitionState(ctx, ownerID, kind, recordID, models.State(req.State))
	if err != nil {
		h.logger.WarnContext(ctx, "state transition rejected",
			"request_id", requestcontext.RequestID(ctx),
			"kind", string(kind),
			"record_id", recordID.String(),
			"target", req.State,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(view))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	kind, ok := pathKinds[chi.URLParam(r, "kind")]
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unknown record kind"))
		return
	}

	query := r.URL.Query()
	state := models.State(query.Get("state"))

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid limit"))
			return
		}
		limit = parsed
	}

	filter, err := parseTimeFilter(query.Get("created_after"), query.Get("created_before"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	page, err := h.vault.ListByState(ctx, ownerID, kind, state, filter, limit, query.Get("cursor"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toListResponse(page))
}

func (h *Handler) handleUpdatePayload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	kind, recordID, ok := h.recordScope(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndValidate[updatePayloadRequest](w, r, h.logger)
	if !ok {
		return
	}

	view, err := h.vault.UpdatePayload(ctx, ownerID, kind, recordID, req.Payload)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(view))
}

func (h *Handler) handleGetMetadata(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	view, err := h.vault.GetOrInitMetadata(r.Context(), ownerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toMetadataResponse(view))
}

func (h *Handler) handleSetMetadata(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[metadataRequest](w, r, h.logger)
	if !ok {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	view, err := h.vault.SetMetadata(ctx, ownerID, req.MintURLs, req.DefaultMintURL)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toMetadataResponse(view))
}

func (h *Handler) handlePurgeOwner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	if err := h.vault.PurgeOwner(ctx, ownerID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseTimeFilter builds a ListFilter from RFC 3339 query parameters.
func parseTimeFilter(after, before string) (*models.ListFilter, error) {
	if after == "" && before == "" {
		return nil, nil
	}
	filter := &models.ListFilter{}
	if after != "" {
		t, err := time.Parse(time.RFC3339, after)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid created_after timestamp")
		}
		filter.CreatedAfter = &t
	}
	if before != "" {
		t, err := time.Parse(time.RFC3339, before)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid created_before timestamp")
		}
		filter.CreatedBefore = &t
	}
	return filter, nil
}
