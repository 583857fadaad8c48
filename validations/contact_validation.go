package validations

import (
	"context"

	contactsDomain "github.com/AzielCF/az-inbox/contacts/domain"
	pkgError "github.com/AzielCF/az-inbox/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

func ValidateCreateContact(ctx context.Context, request contactsDomain.CreateContactRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Phone, validation.Required, validation.Length(8, 32)),
		validation.Field(&request.Name, validation.Length(0, 255)),
		validation.Field(&request.Email, is.EmailFormat),
		validation.Field(&request.Tags, validation.Each(validation.Required, validation.Length(1, 64))),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateCreateContactList(ctx context.Context, request contactsDomain.CreateListRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Name, validation.Required, validation.Length(1, 255)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateAddMembers(ctx context.Context, request contactsDomain.AddMembersRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.ContactIDs, validation.Required, validation.Each(validation.Required)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
