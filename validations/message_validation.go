package validations

import (
	"context"

	messagesDomain "github.com/AzielCF/az-inbox/messages/domain"
	pkgError "github.com/AzielCF/az-inbox/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var mediaTypes = []any{"image", "video", "audio", "document"}

func ValidateSendMessage(ctx context.Context, request messagesDomain.SendRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.ContactID, validation.Required),
		validation.Field(&request.Body, validation.Length(0, 4096)),
		validation.Field(&request.MediaURL, is.URL),
		validation.Field(&request.MediaType,
			validation.When(request.MediaURL != "", validation.Required, validation.In(mediaTypes...))),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
