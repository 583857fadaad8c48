package domain

import pkgError "github.com/AzielCF/az-inbox/pkg/error"

var (
	ErrMessageNotFound = pkgError.NotFoundError("message not found")
	ErrEmptyMessage    = pkgError.ValidationError("message body or media is required")
)
