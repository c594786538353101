package shared

import "errors"

var (
	ErrNotImplemented = errors.New("not implemented")

	// Configuration errors
	ErrMissingConfig = errors.New("configuration not found")
	ErrInvalidConfig = errors.New("invalid configuration")

	// Authentication errors
	ErrAuthFailed         = errors.New("authentication failed")
	ErrRegistrationFailed = errors.New("registration failed")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrUnauthorized       = errors.New("unauthorized")

	// API errors
	ErrNetworkUnreachable = errors.New("network unreachable")
	ErrFetchFailed        = errors.New("fetch failed")
	ErrCreateFailed       = errors.New("create failed")
	ErrUpdateFailed       = errors.New("update failed")
	ErrDeleteFailed       = errors.New("delete failed")
	ErrBookNotFound       = errors.New("book not found")

	// Form validation errors
	ErrRequiredField    = errors.New("required field")
	ErrInvalidPageCount = errors.New("invalid page count")
	ErrPagesExceedTotal = errors.New("pages-read exceeds total")
	ErrSubmitInFlight   = errors.New("submit already in flight")

	// Input validation errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingArgument = errors.New("missing required argument")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidFlag     = errors.New("invalid flag value")
)
