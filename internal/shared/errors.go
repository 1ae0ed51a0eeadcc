package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthRejected        = fmt.Errorf("authorization rejected")
	ErrMissingCode         = fmt.Errorf("authorization code missing from redirect")
	ErrTokenExchangeFailed = fmt.Errorf("token exchange failed")
	ErrRefreshFailed       = fmt.Errorf("token refresh failed")
	ErrNotAuthenticated    = fmt.Errorf("not authenticated")
	ErrNoRefreshToken      = fmt.Errorf("no refresh token available")
	ErrTimeout             = fmt.Errorf("operation timed out")

	// Sync errors
	ErrFailedToCreatePlaylist = fmt.Errorf("failed to create playlist")
	ErrFailedToAddTracks      = fmt.Errorf("failed to add tracks")
	ErrUnauthorized           = fmt.Errorf("credential rejected by remote service")

	// API and service errors
	ErrAPIRequest    = fmt.Errorf("API request failed")
	ErrVideoNotFound = fmt.Errorf("video not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
