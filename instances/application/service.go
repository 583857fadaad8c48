package application

import (
	"context"
	"strings"
	"time"

	"github.com/AzielCF/az-inbox/instances/domain"
	"github.com/AzielCF/az-inbox/pkg/gateway"
	"github.com/AzielCF/az-inbox/validations"
	"github.com/sirupsen/logrus"
)

// Gateway is the slice of the gateway client the rest of the app relies on.
type Gateway interface {
	Ping(ctx context.Context) error
	QRCode(ctx context.Context) (string, error)
	Status(ctx context.Context) (gateway.StatusResponse, error)
	Send(ctx context.Context, req gateway.SendRequest) (string, error)
	Logout(ctx context.Context) error
	Restart(ctx context.Context) error
}

type GatewayFactory func(creds gateway.Credentials) Gateway

// HTTPGatewayFactory builds real clients with the configured timeout.
func HTTPGatewayFactory(timeout time.Duration) GatewayFactory {
	return func(creds gateway.Credentials) Gateway {
		return gateway.NewClient(creds, gateway.WithTimeout(timeout))
	}
}

type Service struct {
	repo       domain.Repository
	newGateway GatewayFactory
}

func NewService(repo domain.Repository, factory GatewayFactory) *Service {
	return &Service{repo: repo, newGateway: factory}
}

// Register stores a new instance after checking the gateway accepts its
// credentials.
func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Instance, error) {
	if err := validations.ValidateRegisterInstance(ctx, req); err != nil {
		return nil, err
	}
	inst := &domain.Instance{
		Name:       strings.TrimSpace(req.Name),
		APIURL:     strings.TrimRight(strings.TrimSpace(req.APIURL), "/"),
		APIKey:     strings.TrimSpace(req.APIKey),
		InstanceID: strings.TrimSpace(req.InstanceID),
		IsDefault:  req.IsDefault,
	}

	if err := s.Gateway(inst).Ping(ctx); err != nil {
		logrus.WithError(err).WithField("instance_id", inst.InstanceID).Warn("[INSTANCES] gateway ping failed, registering anyway")
	}

	if err := s.repo.Create(ctx, inst); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"id": inst.ID, "tenant_id": inst.TenantID}).Info("[INSTANCES] instance registered")
	return inst, nil
}

func (s *Service) List(ctx context.Context) ([]*domain.Instance, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Instance, error) {
	return s.repo.GetByID(ctx, id)
}

// Resolve returns the explicit instance, or the tenant's default when id is empty.
func (s *Service) Resolve(ctx context.Context, id string) (*domain.Instance, error) {
	if strings.TrimSpace(id) != "" {
		return s.repo.GetByID(ctx, id)
	}
	return s.repo.GetDefault(ctx)
}

func (s *Service) ResolveByGatewayID(ctx context.Context, gatewayID string) (*domain.Instance, error) {
	return s.repo.GetByGatewayID(ctx, strings.TrimSpace(gatewayID))
}

// Gateway returns a client bound to inst's credentials.
func (s *Service) Gateway(inst *domain.Instance) Gateway {
	return s.newGateway(gateway.Credentials{
		APIURL:     inst.APIURL,
		APIKey:     inst.APIKey,
		InstanceID: inst.InstanceID,
	})
}

// Status asks the gateway and records the answer locally.
func (s *Service) Status(ctx context.Context, id string) (gateway.StatusResponse, error) {
	inst, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return gateway.StatusResponse{}, err
	}
	status, err := s.Gateway(inst).Status(ctx)
	if err != nil {
		return gateway.StatusResponse{}, wrapGatewayError(err)
	}
	if status.Connected != inst.Connected || (status.PhoneNumber != "" && status.PhoneNumber != inst.PhoneNumber) {
		if err := s.repo.UpdateConnection(ctx, inst.ID, status.Connected, status.PhoneNumber); err != nil {
			return status, err
		}
	}
	return status, nil
}

func (s *Service) QRCode(ctx context.Context, id string) (string, error) {
	inst, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	qr, err := s.Gateway(inst).QRCode(ctx)
	return qr, wrapGatewayError(err)
}

func (s *Service) Logout(ctx context.Context, id string) error {
	inst, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Gateway(inst).Logout(ctx); err != nil {
		return wrapGatewayError(err)
	}
	return s.repo.UpdateConnection(ctx, inst.ID, false, "")
}

func (s *Service) Restart(ctx context.Context, id string) error {
	inst, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return wrapGatewayError(s.Gateway(inst).Restart(ctx))
}
