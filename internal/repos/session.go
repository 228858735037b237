package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/preceptorly/feedback-backend/internal/logger"
	"github.com/preceptorly/feedback-backend/internal/types"
)

type SessionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, session *types.FeedbackSession) (*types.FeedbackSession, error)
	GetByID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*types.FeedbackSession, error)
	ListByPreceptorID(ctx context.Context, tx *gorm.DB, preceptorID uuid.UUID) ([]*types.FeedbackSession, error)
	Save(ctx context.Context, tx *gorm.DB, session *types.FeedbackSession) error
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	repoLog := baseLog.With("repo", "SessionRepo")
	return &sessionRepo{db: db, log: repoLog}
}

func (sr *sessionRepo) Create(ctx context.Context, tx *gorm.DB, session *types.FeedbackSession) (*types.FeedbackSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	if session == nil {
		return nil, errors.New("session required")
	}
	if err := transaction.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

// GetByID loads the full aggregate: records in standard order, turns in
// arrival order.
func (sr *sessionRepo) GetByID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*types.FeedbackSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var result types.FeedbackSession
	err := transaction.WithContext(ctx).
		Preload("Records", func(db *gorm.DB) *gorm.DB {
			return db.Order("standard_id ASC")
		}).
		Preload("Turns", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		}).
		Where("id = ?", sessionID).
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (sr *sessionRepo) ListByPreceptorID(ctx context.Context, tx *gorm.DB, preceptorID uuid.UUID) ([]*types.FeedbackSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var results []*types.FeedbackSession
	if err := transaction.WithContext(ctx).
		Where("preceptor_id = ?", preceptorID).
		Order("started_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// Save persists the aggregate including association changes. New records and
// turns carry fresh UUIDs assigned by the machine, so a full-save upsert is
// enough.
func (sr *sessionRepo) Save(ctx context.Context, tx *gorm.DB, session *types.FeedbackSession) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	if session == nil {
		return errors.New("session required")
	}
	return transaction.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(session).Error
}
