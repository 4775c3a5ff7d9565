package api

// API limits and constants.
const (
	// MaxBodySize bounds JSON request bodies. Visit notes are the largest field.
	MaxBodySize = 64 << 10

	// EnvelopeVersion is the response envelope version sent as "v".
	EnvelopeVersion = 1
)

// Cache-Control header values.
const (
	CacheNoStore = "no-store"
)
