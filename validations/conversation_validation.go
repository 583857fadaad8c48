package validations

import (
	"context"

	conversationsDomain "github.com/AzielCF/az-inbox/conversations/domain"
	pkgError "github.com/AzielCF/az-inbox/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func ValidateCreateConversation(ctx context.Context, request conversationsDomain.CreateRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.ContactID, validation.Required),
		validation.Field(&request.OwnerID, validation.Required),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateTransfer(ctx context.Context, request conversationsDomain.TransferRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.FromUserID, validation.Required),
		validation.Field(&request.ToUserID, validation.Required),
		validation.Field(&request.Reason, validation.Length(0, 1024)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateAddParticipant(ctx context.Context, request conversationsDomain.AddParticipantRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.UserID, validation.Required),
		validation.Field(&request.Type, validation.Required,
			validation.In(conversationsDomain.ParticipantMember, conversationsDomain.ParticipantObserver)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
