package validations

import (
	"context"

	campaignsDomain "github.com/AzielCF/az-inbox/campaigns/domain"
	pkgError "github.com/AzielCF/az-inbox/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

func ValidateCreateCampaign(ctx context.Context, request campaignsDomain.CreateRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&request.Message, validation.Required, validation.Length(1, 4096)),
		validation.Field(&request.ListID, validation.Required),
		validation.Field(&request.MediaURL, is.URL),
		validation.Field(&request.MediaType,
			validation.When(request.MediaURL != "", validation.Required, validation.In(mediaTypes...))),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
