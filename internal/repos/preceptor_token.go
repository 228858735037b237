package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/preceptorly/feedback-backend/internal/logger"
	"github.com/preceptorly/feedback-backend/internal/types"
)

type PreceptorTokenRepo interface {
	Create(ctx context.Context, tx *gorm.DB, tokens []*types.PreceptorToken) ([]*types.PreceptorToken, error)
	GetByPreceptorIDs(ctx context.Context, tx *gorm.DB, preceptorIDs []uuid.UUID) ([]*types.PreceptorToken, error)
	GetByAccessTokens(ctx context.Context, tx *gorm.DB, accessTokens []string) ([]*types.PreceptorToken, error)
	GetByRefreshTokens(ctx context.Context, tx *gorm.DB, refreshTokens []string) ([]*types.PreceptorToken, error)
	FullDeleteByTokens(ctx context.Context, tx *gorm.DB, tokens []*types.PreceptorToken) error
}

type preceptorTokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPreceptorTokenRepo(db *gorm.DB, baseLog *logger.Logger) PreceptorTokenRepo {
	repoLog := baseLog.With("repo", "PreceptorTokenRepo")
	return &preceptorTokenRepo{db: db, log: repoLog}
}

func (tr *preceptorTokenRepo) Create(ctx context.Context, tx *gorm.DB, tokens []*types.PreceptorToken) ([]*types.PreceptorToken, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	if len(tokens) == 0 {
		return []*types.PreceptorToken{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

func (tr *preceptorTokenRepo) GetByPreceptorIDs(ctx context.Context, tx *gorm.DB, preceptorIDs []uuid.UUID) ([]*types.PreceptorToken, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.PreceptorToken
	if len(preceptorIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("preceptor_id IN ?", preceptorIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (tr *preceptorTokenRepo) GetByAccessTokens(ctx context.Context, tx *gorm.DB, accessTokens []string) ([]*types.PreceptorToken, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.PreceptorToken
	if len(accessTokens) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("access_token IN ?", accessTokens).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (tr *preceptorTokenRepo) GetByRefreshTokens(ctx context.Context, tx *gorm.DB, refreshTokens []string) ([]*types.PreceptorToken, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.PreceptorToken
	if len(refreshTokens) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("refresh_token IN ?", refreshTokens).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (tr *preceptorTokenRepo) FullDeleteByTokens(ctx context.Context, tx *gorm.DB, tokens []*types.PreceptorToken) error {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	if len(tokens) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(tokens))
	for _, tok := range tokens {
		if tok != nil {
			ids = append(ids, tok.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	return transaction.WithContext(ctx).
		Unscoped().
		Where("id IN ?", ids).
		Delete(&types.PreceptorToken{}).Error
}
