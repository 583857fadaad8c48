package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/AzielCF/az-inbox/core/database"
	"github.com/AzielCF/az-inbox/queue/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type jobModel struct {
	ID             string    `gorm:"primaryKey"`
	Type           string    `gorm:"not null"`
	Payload        string    `gorm:"type:text;not null"`
	Status         string    `gorm:"index:idx_queue_jobs_poll,priority:1;not null"`
	Attempts       int       `gorm:"not null"`
	MaxAttempts    int       `gorm:"not null"`
	LastError      string    `gorm:"type:text"`
	Lease          string    `gorm:"index"`
	NextEligibleAt time.Time `gorm:"index:idx_queue_jobs_poll,priority:2;not null"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
	ProcessedAt    *time.Time
}

func (jobModel) TableName() string {
	return "queue_jobs"
}

// JobGormRepository stores jobs process-wide. Handlers that act on tenant
// data read the tenant from their own payload.
type JobGormRepository struct {
	acc *database.Accessor
}

func NewJobGormRepository(acc *database.Accessor) *JobGormRepository {
	return &JobGormRepository{acc: acc}
}

func (r *JobGormRepository) InitSchema(ctx context.Context) error {
	return r.acc.Admin(ctx).AutoMigrate(&jobModel{})
}

func (r *JobGormRepository) Create(ctx context.Context, job *domain.Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	m := toJobModel(job)
	if err := r.acc.Admin(ctx).Create(&m).Error; err != nil {
		return err
	}
	job.CreatedAt, job.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *JobGormRepository) Get(ctx context.Context, id string) (*domain.Job, error) {
	var m jobModel
	if err := r.acc.Admin(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrJobNotFound
		}
		return nil, err
	}
	job := fromJobModel(m)
	return &job, nil
}

func (r *JobGormRepository) ListEligible(ctx context.Context, now time.Time, limit int) ([]domain.Job, error) {
	var rows []jobModel
	err := r.acc.Admin(ctx).
		Where("status = ? AND attempts < max_attempts AND next_eligible_at <= ?", string(domain.JobPending), now).
		Order("created_at ASC").Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	jobs := make([]domain.Job, 0, len(rows))
	for _, m := range rows {
		jobs = append(jobs, fromJobModel(m))
	}
	return jobs, nil
}

func (r *JobGormRepository) Claim(ctx context.Context, id, lease string, at time.Time) (bool, error) {
	res := r.acc.Admin(ctx).Model(&jobModel{}).
		Where("id = ? AND status = ?", id, string(domain.JobPending)).
		Updates(map[string]any{"status": string(domain.JobProcessing), "lease": lease, "updated_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *JobGormRepository) Heartbeat(ctx context.Context, id, lease string, at time.Time) (bool, error) {
	res := r.held(ctx, id, lease).Update("updated_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *JobGormRepository) MarkDone(ctx context.Context, id, lease string, at time.Time) error {
	return r.finish(ctx, id, lease, map[string]any{
		"status":       string(domain.JobDone),
		"lease":        "",
		"processed_at": at,
		"updated_at":   at,
	})
}

func (r *JobGormRepository) MarkRetry(ctx context.Context, id, lease string, attempts int, lastErr string, nextEligibleAt, at time.Time) error {
	return r.finish(ctx, id, lease, map[string]any{
		"status":           string(domain.JobPending),
		"lease":            "",
		"attempts":         attempts,
		"last_error":       lastErr,
		"next_eligible_at": nextEligibleAt,
		"updated_at":       at,
	})
}

func (r *JobGormRepository) MarkFailed(ctx context.Context, id, lease string, attempts int, lastErr string, at time.Time) error {
	return r.finish(ctx, id, lease, map[string]any{
		"status":       string(domain.JobFailed),
		"lease":        "",
		"attempts":     attempts,
		"last_error":   lastErr,
		"processed_at": at,
		"updated_at":   at,
	})
}

func (r *JobGormRepository) held(ctx context.Context, id, lease string) *gorm.DB {
	return r.acc.Admin(ctx).Model(&jobModel{}).
		Where("id = ? AND status = ? AND lease = ?", id, string(domain.JobProcessing), lease)
}

// finish only touches a job this poller still holds, so a run that lost its
// lease can never overwrite the row of the run that replaced it.
func (r *JobGormRepository) finish(ctx context.Context, id, lease string, updates map[string]any) error {
	res := r.held(ctx, id, lease).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrLeaseLost
	}
	return nil
}

const staleError = "lease expired: poller stopped sending heartbeats"

func (r *JobGormRepository) ReleaseStale(ctx context.Context, cutoff, at time.Time) (domain.StaleResult, error) {
	var out domain.StaleResult
	err := r.acc.Transaction(ctx, func(ctx context.Context) error {
		stale := func() *gorm.DB {
			return r.acc.Admin(ctx).Model(&jobModel{}).
				Where("status = ? AND updated_at < ?", string(domain.JobProcessing), cutoff)
		}

		res := stale().Where("attempts + 1 >= max_attempts").Updates(map[string]any{
			"status":       string(domain.JobFailed),
			"lease":        "",
			"attempts":     gorm.Expr("attempts + 1"),
			"last_error":   staleError,
			"processed_at": at,
			"updated_at":   at,
		})
		if res.Error != nil {
			return res.Error
		}
		out.Failed = res.RowsAffected

		res = stale().Updates(map[string]any{
			"status":           string(domain.JobPending),
			"lease":            "",
			"attempts":         gorm.Expr("attempts + 1"),
			"last_error":       staleError,
			"next_eligible_at": at,
			"updated_at":       at,
		})
		if res.Error != nil {
			return res.Error
		}
		out.Requeued = res.RowsAffected
		return nil
	})
	return out, err
}

func (r *JobGormRepository) CountByStatus(ctx context.Context) (domain.Stats, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := r.acc.Admin(ctx).Model(&jobModel{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return domain.Stats{}, err
	}
	var stats domain.Stats
	for _, row := range rows {
		switch domain.JobStatus(row.Status) {
		case domain.JobPending:
			stats.Pending = row.Total
		case domain.JobProcessing:
			stats.Processing = row.Total
		case domain.JobDone:
			stats.Done = row.Total
		case domain.JobFailed:
			stats.Failed = row.Total
		}
	}
	return stats, nil
}

func toJobModel(j *domain.Job) jobModel {
	return jobModel{
		ID:             j.ID,
		Type:           string(j.Type),
		Payload:        string(j.Payload),
		Status:         string(j.Status),
		Attempts:       j.Attempts,
		MaxAttempts:    j.MaxAttempts,
		LastError:      j.LastError,
		NextEligibleAt: j.NextEligibleAt,
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.UpdatedAt,
		ProcessedAt:    j.ProcessedAt,
	}
}

func fromJobModel(m jobModel) domain.Job {
	return domain.Job{
		ID:             m.ID,
		Type:           domain.JobType(m.Type),
		Payload:        json.RawMessage(m.Payload),
		Status:         domain.JobStatus(m.Status),
		Attempts:       m.Attempts,
		MaxAttempts:    m.MaxAttempts,
		LastError:      m.LastError,
		NextEligibleAt: m.NextEligibleAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		ProcessedAt:    m.ProcessedAt,
	}
}
