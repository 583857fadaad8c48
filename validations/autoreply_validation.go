package validations

import (
	"context"

	autoreplyDomain "github.com/AzielCF/az-inbox/autoreply/domain"
	pkgError "github.com/AzielCF/az-inbox/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func ValidateCreateRule(ctx context.Context, request autoreplyDomain.CreateRuleRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Trigger, validation.Required, validation.Length(1, 255)),
		validation.Field(&request.Reply, validation.Required, validation.Length(1, 4096)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
