package utils

import (
	"time"
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Routing constants
const (
	// MaxGeoLookupTimeout caps the time a visit may wait for geolocation
	MaxGeoLookupTimeout = time.Second

	// DefaultPageSize is used by list endpoints when no limit is given
	DefaultPageSize = 50

	// MaxPageSize bounds list endpoint limits
	MaxPageSize = 500
)
