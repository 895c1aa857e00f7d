// Package validation centralizes request size limits so transport and
// handlers agree on what "too big" means.
package validation

// HTTP body limits
const (
	// MaxBodySize is the maximum allowed request body size (64 KB).
	// Quote and proof payloads are small JSON documents; anything larger is
	// either a mistake or an attack.
	MaxBodySize = 64 * 1024
)

// Slice element count limits
const (
	// MaxMintURLs is the maximum number of mint URLs per wallet metadata record.
	MaxMintURLs = 64
)
