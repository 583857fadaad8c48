package domain

import pkgError "github.com/AzielCF/az-inbox/pkg/error"

const (
	ErrJobNotFound     = pkgError.NotFoundError("job not found")
	ErrUnknownJobType  = pkgError.ValidationError("unknown job type")
	ErrInvalidAttempts = pkgError.ValidationError("max attempts must be at least 1")
	ErrLeaseLost       = pkgError.ConflictError("job lease lost to another poller")
)
