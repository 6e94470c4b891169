package store

import (
	"context"
	"fmt"

	"github.com/membreg/reconciler/internal/store/model"
	"gorm.io/gorm"
)

type Candidate interface {
	List(ctx context.Context, filter *CandidateQueryFilter, opts *CandidateQueryOptions) (model.CandidateList, error)
	Create(ctx context.Context, candidate model.Candidate) (*model.Candidate, error)
	UpdateVerification(ctx context.Context, id int64, update model.VerificationUpdate) error
	CountByStatus(ctx context.Context, filter *CandidateQueryFilter) ([]model.StatusCount, error)
	InitialMigration(ctx context.Context) error
}

type CandidateStore struct {
	db *gorm.DB
}

// Make sure we conform to Candidate interface
var _ Candidate = (*CandidateStore)(nil)

func NewCandidateStore(db *gorm.DB) Candidate {
	return &CandidateStore{db: db}
}

func (c *CandidateStore) InitialMigration(ctx context.Context) error {
	return c.db.WithContext(ctx).AutoMigrate(&model.Candidate{})
}

// List lists the candidates matching filter, shaped by opts.
func (c *CandidateStore) List(ctx context.Context, filter *CandidateQueryFilter, opts *CandidateQueryOptions) (model.CandidateList, error) {
	var candidates model.CandidateList
	tx := c.db.WithContext(ctx)

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}

	if opts != nil {
		for _, fn := range opts.QueryFn {
			tx = fn(tx)
		}
	}

	if err := tx.Model(&candidates).Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("listing candidates: %w", err)
	}

	return candidates, nil
}

func (c *CandidateStore) Create(ctx context.Context, candidate model.Candidate) (*model.Candidate, error) {
	if candidate.StatusID == 0 {
		candidate.StatusID = model.StatusUnknown
	}
	candidate.Registered = candidate.StatusID == model.StatusRegistered

	if err := c.db.WithContext(ctx).Create(&candidate).Error; err != nil {
		return nil, err
	}

	return &candidate, nil
}

// UpdateVerification writes the outcome of one verification in a single UPDATE statement.
// status_boolean_flag always mirrors status_enum_id.
func (c *CandidateStore) UpdateVerification(ctx context.Context, id int64, update model.VerificationUpdate) error {
	verifiedAt := update.VerifiedAt.UTC()
	result := c.db.WithContext(ctx).
		Model(&model.Candidate{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status_enum_id":      update.Status,
			"status_boolean_flag": update.Status == model.StatusRegistered,
			"last_verified_at":    &verifiedAt,
			"district_code":       update.DistrictCode,
		})
	if result.Error != nil {
		return fmt.Errorf("updating candidate %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}

	return nil
}

func (c *CandidateStore) CountByStatus(ctx context.Context, filter *CandidateQueryFilter) ([]model.StatusCount, error) {
	var counts []model.StatusCount
	tx := c.db.WithContext(ctx).Model(&model.Candidate{})

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}

	err := tx.Select("status_enum_id, COUNT(*) AS total").
		Group("status_enum_id").
		Order("status_enum_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("counting candidates: %w", err)
	}

	return counts, nil
}
