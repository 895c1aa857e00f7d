package handler

import (
	"encoding/json"
	"time"

	"satsvault/internal/vault/service"
)

type recordResponse struct {
	Kind      string          `json:"kind"`
	ID        string          `json:"id"`
	State     string          `json:"state,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type listResponse struct {
	Records    []*recordResponse `json:"records"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

type metadataResponse struct {
	MintURLs       []string  `json:"mint_urls"`
	DefaultMintURL string    `json:"default_mint_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toRecordResponse(view *service.RecordView) *recordResponse {
	return &recordResponse{
		Kind:      string(view.Kind),
		ID:        view.ID.String(),
		State:     string(view.State),
		Payload:   json.RawMessage(view.Payload),
		CreatedAt: view.CreatedAt,
		UpdatedAt: view.UpdatedAt,
	}
}

func toListResponse(page *service.PageView) *listResponse {
	res := &listResponse{
		Records:    make([]*recordResponse, 0, len(page.Records)),
		NextCursor: page.NextCursor,
	}
	for _, view := range page.Records {
		res.Records = append(res.Records, toRecordResponse(view))
	}
	return res
}

func toMetadataResponse(view *service.MetadataView) *metadataResponse {
	urls := view.MintURLs
	if urls == nil {
		urls = []string{}
	}
	return &metadataResponse{
		MintURLs:       urls,
		DefaultMintURL: view.DefaultMintURL,
		CreatedAt:      view.CreatedAt,
		UpdatedAt:      view.UpdatedAt,
	}
}
