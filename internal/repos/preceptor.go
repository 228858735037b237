package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/preceptorly/feedback-backend/internal/logger"
	"github.com/preceptorly/feedback-backend/internal/types"
)

type PreceptorRepo interface {
	Create(ctx context.Context, tx *gorm.DB, preceptors []*types.Preceptor) ([]*types.Preceptor, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, preceptorIDs []uuid.UUID) ([]*types.Preceptor, error)
	GetByEmails(ctx context.Context, tx *gorm.DB, emails []string) ([]*types.Preceptor, error)
	EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error)
}

type preceptorRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPreceptorRepo(db *gorm.DB, baseLog *logger.Logger) PreceptorRepo {
	repoLog := baseLog.With("repo", "PreceptorRepo")
	return &preceptorRepo{db: db, log: repoLog}
}

func (pr *preceptorRepo) Create(ctx context.Context, tx *gorm.DB, preceptors []*types.Preceptor) ([]*types.Preceptor, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	if len(preceptors) == 0 {
		return []*types.Preceptor{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&preceptors).Error; err != nil {
		return nil, err
	}
	return preceptors, nil
}

func (pr *preceptorRepo) GetByIDs(ctx context.Context, tx *gorm.DB, preceptorIDs []uuid.UUID) ([]*types.Preceptor, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var results []*types.Preceptor
	if len(preceptorIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", preceptorIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *preceptorRepo) GetByEmails(ctx context.Context, tx *gorm.DB, emails []string) ([]*types.Preceptor, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var results []*types.Preceptor
	if len(emails) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("email IN ?", emails).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *preceptorRepo) EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Preceptor{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
