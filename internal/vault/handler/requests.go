package handler

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	dErrors "satsvault/pkg/domain-errors"
	s "satsvault/pkg/platform/strings"
	"satsvault/pkg/platform/validation"
)

// createRecordRequest creates a quote, proof, or transaction record. State is
// optional; an empty value means the kind's initial state.
type createRecordRequest struct {
	ID      string          `json:"id"`
	State   string          `json:"state,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// Validate checks that the request is well-formed.
func (r *createRecordRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if strings.TrimSpace(r.ID) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	if len(r.Payload) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "payload is required")
	}
	return nil
}

// transitionRequest requests a lifecycle move to a target state.
type transitionRequest struct {
	State string `json:"state"`
}

// Validate checks that the request is well-formed.
func (r *transitionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.State == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "state is required")
	}
	return nil
}

// updatePayloadRequest submits fresh plaintext to be re-sealed in place.
type updatePayloadRequest struct {
	Payload json.RawMessage `json:"payload"`
}

// Validate checks that the request is well-formed.
func (r *updatePayloadRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.Payload) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "payload is required")
	}
	return nil
}

// metadataRequest replaces the owner's mint URL bookkeeping.
type metadataRequest struct {
	MintURLs       []string `json:"mint_urls"`
	DefaultMintURL string   `json:"default_mint_url,omitempty"`
}

// Normalize trims whitespace and drops duplicate URLs while preserving order.
func (r *metadataRequest) Normalize() {
	if r == nil {
		return
	}
	r.MintURLs = s.DedupeAndTrim(r.MintURLs)
	r.DefaultMintURL = strings.TrimSpace(r.DefaultMintURL)
}

// Validate checks that the request is well-formed.
func (r *metadataRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.MintURLs) > validation.MaxMintURLs {
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("too many mint URLs: max %d allowed", validation.MaxMintURLs))
	}
	for _, u := range r.MintURLs {
		parsed, err := url.Parse(u)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "invalid mint URL: "+u)
		}
	}
	return nil
}
