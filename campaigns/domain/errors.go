package domain

import pkgError "github.com/AzielCF/az-inbox/pkg/error"

const (
	ErrCampaignNotFound = pkgError.NotFoundError("campaign not found")
	ErrNotLaunchable    = pkgError.ConflictError("campaign has already been launched")
	ErrEmptyAudience    = pkgError.ValidationError("contact list has no members")
)
