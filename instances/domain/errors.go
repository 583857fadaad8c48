package domain

import pkgError "github.com/AzielCF/az-inbox/pkg/error"

var (
	ErrInstanceNotFound  = pkgError.NotFoundError("instance not found")
	ErrNoDefaultInstance = pkgError.ValidationError("no sending instance configured for tenant")
	ErrDuplicateInstance = pkgError.ConflictError("instance already registered")
)
