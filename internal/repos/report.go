package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/preceptorly/feedback-backend/internal/logger"
	"github.com/preceptorly/feedback-backend/internal/types"
)

type ReportRepo interface {
	Create(ctx context.Context, tx *gorm.DB, record *types.ReportRecord) (*types.ReportRecord, error)
	Save(ctx context.Context, tx *gorm.DB, record *types.ReportRecord) (*types.ReportRecord, error)
	GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*types.ReportRecord, error)
}

type reportRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReportRepo(db *gorm.DB, baseLog *logger.Logger) ReportRepo {
	repoLog := baseLog.With("repo", "ReportRepo")
	return &reportRepo{db: db, log: repoLog}
}

func (rr *reportRepo) Create(ctx context.Context, tx *gorm.DB, record *types.ReportRecord) (*types.ReportRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	if record == nil {
		return nil, errors.New("report record required")
	}
	if err := transaction.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (rr *reportRepo) Save(ctx context.Context, tx *gorm.DB, record *types.ReportRecord) (*types.ReportRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	if record == nil {
		return nil, errors.New("report record required")
	}
	if err := transaction.WithContext(ctx).Save(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (rr *reportRepo) GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*types.ReportRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var result types.ReportRecord
	err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}
