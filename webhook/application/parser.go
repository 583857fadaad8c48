package application

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	pkgError "github.com/AzielCF/az-inbox/pkg/error"
	"github.com/AzielCF/az-inbox/validations"
	"github.com/AzielCF/az-inbox/webhook/domain"
)

// Parse validates a raw webhook body and narrows it to one Event variant.
// The returned Payload is nil only when the body is not JSON at all.
func Parse(ctx context.Context, raw []byte) (domain.Event, *domain.Payload, error) {
	var p domain.Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, nil, pkgError.ValidationError("malformed webhook body: " + err.Error())
	}
	p.Event = strings.TrimSpace(p.Event)
	if err := validations.ValidateWebhookPayload(ctx, p); err != nil {
		return nil, &p, err
	}

	switch p.Kind() {
	case domain.KindMessage:
		return domain.MessageReceived{
			InstanceID:       p.InstanceID,
			GatewayMessageID: p.Data.ID,
			From:             p.Data.From,
			SenderName:       p.Data.Sender.DisplayName(),
			Body:             p.Data.Body,
			Type:             p.Data.Type,
			MediaURL:         p.Data.MediaURL,
			MediaType:        p.Data.MediaType,
			Caption:          p.Data.Caption,
			Timestamp:        p.Data.Timestamp.Time,
		}, &p, nil

	case domain.KindStatus:
		status, ok := domain.StatusFromGateway(p.Data.Status)
		if !ok && p.Data.Ack != nil {
			status, ok = domain.StatusFromAck(*p.Data.Ack)
		}
		if !ok {
			return nil, &p, pkgError.ValidationError("data: (status: must be a known delivery status.).")
		}
		ts := p.Data.Timestamp.Time
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		return domain.StatusUpdate{
			InstanceID:       p.InstanceID,
			GatewayMessageID: p.Data.ID,
			Status:           status,
			Timestamp:        ts,
		}, &p, nil
	}

	return domain.UnknownEvent{InstanceID: p.InstanceID, Name: p.Event}, &p, nil
}
