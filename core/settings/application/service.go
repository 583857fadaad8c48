package application

import (
	"context"
	"strconv"

	"github.com/AzielCF/az-inbox/core/settings/domain"
	pkgError "github.com/AzielCF/az-inbox/pkg/error"
	"github.com/sirupsen/logrus"
)

type SettingsService struct {
	repo                 domain.ISettingsRepository
	defaultInboxPriority int
}

func NewSettingsService(repo domain.ISettingsRepository, defaultInboxPriority int) *SettingsService {
	return &SettingsService{repo: repo, defaultInboxPriority: defaultInboxPriority}
}

// DynamicSettings is the effective configuration of one tenant: its
// overrides merged over the process defaults.
type DynamicSettings struct {
	InboxDefaultPriority int  `json:"inbox_default_priority"`
	InboxPriorityCustom  bool `json:"inbox_priority_custom"`
}

func (s *SettingsService) GetDynamicSettings(ctx context.Context) (*DynamicSettings, error) {
	ds := &DynamicSettings{InboxDefaultPriority: s.defaultInboxPriority}

	val, err := s.repo.Get(ctx, domain.KeyInboxDefaultPriority)
	if err != nil {
		return nil, err
	}
	if val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			ds.InboxDefaultPriority = n
			ds.InboxPriorityCustom = true
		}
	}
	return ds, nil
}

func (s *SettingsService) SetInboxDefaultPriority(ctx context.Context, v int) error {
	if v < 0 {
		return pkgError.ValidationError("inbox_default_priority must not be negative")
	}
	return s.repo.Set(ctx, domain.KeyInboxDefaultPriority, strconv.Itoa(v))
}

func (s *SettingsService) ResetInboxDefaultPriority(ctx context.Context) error {
	return s.repo.Delete(ctx, domain.KeyInboxDefaultPriority)
}

// DefaultInboxPriority is used by ingestion for new inbox items. A failed
// lookup falls back to the process default rather than blocking ingestion.
func (s *SettingsService) DefaultInboxPriority(ctx context.Context) int {
	ds, err := s.GetDynamicSettings(ctx)
	if err != nil {
		logrus.WithError(err).Warn("[SETTINGS] Falling back to default inbox priority")
		return s.defaultInboxPriority
	}
	return ds.InboxDefaultPriority
}
