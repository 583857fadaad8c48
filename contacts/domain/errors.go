package domain

import pkgError "github.com/AzielCF/az-inbox/pkg/error"

var (
	ErrContactNotFound  = pkgError.NotFoundError("contact not found")
	ErrDuplicateContact = pkgError.ConflictError("contact with this phone already exists")
	ErrListNotFound     = pkgError.NotFoundError("contact list not found")
	ErrInvalidPhone     = pkgError.ValidationError("phone must contain digits")
)
