package domain

import pkgError "github.com/AzielCF/az-inbox/pkg/error"

var (
	ErrConversationNotFound   = pkgError.NotFoundError("conversation not found")
	ErrOpenConversationExists = pkgError.ConflictError("contact already has an open conversation")
	ErrConversationArchived   = pkgError.ConflictError("conversation is archived")
	ErrOwnershipConflict      = pkgError.ConflictError("conversation is not owned by the transferring user")
	ErrSameOwner              = pkgError.ValidationError("from_user_id and to_user_id must differ")
	ErrAlreadyParticipant     = pkgError.ConflictError("user is already an active participant")
	ErrCannotRemoveOwner      = pkgError.ConflictError("the owner can only leave through a transfer")
	ErrInvalidParticipantType = pkgError.ValidationError("participant type must be participant or observer")

	ErrInboxItemNotFound  = pkgError.NotFoundError("inbox item not found")
	ErrInboxItemClaimed   = pkgError.ConflictError("inbox item already claimed")
	ErrPendingInboxExists = pkgError.ConflictError("contact already has a pending inbox item")
)
