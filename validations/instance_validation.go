package validations

import (
	"context"

	instancesDomain "github.com/AzielCF/az-inbox/instances/domain"
	pkgError "github.com/AzielCF/az-inbox/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

func ValidateRegisterInstance(ctx context.Context, request instancesDomain.RegisterRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&request.APIURL, validation.Required, is.URL),
		validation.Field(&request.InstanceID, validation.Required, validation.Length(1, 128)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
