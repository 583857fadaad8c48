package validations

import (
	"context"
	"errors"

	pkgError "github.com/AzielCF/az-inbox/pkg/error"
	webhookDomain "github.com/AzielCF/az-inbox/webhook/domain"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var errUnknownStatus = validation.NewError("validation_unknown_status", "must be a known delivery status")

func ValidateWebhookPayload(ctx context.Context, request webhookDomain.Payload) error {
	err := validation.Errors{
		"event":      validation.Validate(request.Event, validation.Required),
		"instanceId": validation.Validate(request.InstanceID, validation.Required),
		"data":       validateWebhookData(ctx, request.Kind(), request.Data),
	}.Filter()

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func validateWebhookData(ctx context.Context, kind webhookDomain.Kind, data webhookDomain.PayloadData) error {
	switch kind {
	case webhookDomain.KindMessage:
		return validation.ValidateStructWithContext(ctx, &data,
			validation.Field(&data.ID, validation.Required),
			validation.Field(&data.From, validation.Required),
			validation.Field(&data.Type, validation.Required),
			validation.Field(&data.Timestamp, validation.By(requireTime)),
		)
	case webhookDomain.KindStatus:
		return validation.ValidateStructWithContext(ctx, &data,
			validation.Field(&data.ID, validation.Required),
			validation.Field(&data.Status,
				validation.When(data.Ack == nil, validation.Required),
				validation.By(knownStatus)),
		)
	}
	return nil
}

func requireTime(value any) error {
	ts, _ := value.(webhookDomain.Timestamp)
	if ts.IsZero() {
		return errors.New("cannot be blank")
	}
	return nil
}

func knownStatus(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, ok := webhookDomain.StatusFromGateway(s); !ok {
		return errUnknownStatus
	}
	return nil
}
