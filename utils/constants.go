package utils

import (
	"time"
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Request handling constants
const (
	// DefaultRequestTimeout bounds a single use-case invocation started by a handler
	DefaultRequestTimeout = 10 * time.Second

	// DefaultClientStaleTime is how long the optimistic client trusts its cached value
	DefaultClientStaleTime = 30 * time.Second
)
