package domain

import "context"

type Repository interface {
	Create(ctx context.Context, inst *Instance) error
	GetByID(ctx context.Context, id string) (*Instance, error)
	// GetByGatewayID is administrative: webhooks arrive before a tenant is known.
	GetByGatewayID(ctx context.Context, gatewayID string) (*Instance, error)
	GetDefault(ctx context.Context) (*Instance, error)
	List(ctx context.Context) ([]*Instance, error)
	UpdateConnection(ctx context.Context, id string, connected bool, phone string) error
}
