package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/preceptorly/feedback-backend/internal/logger"
	"github.com/preceptorly/feedback-backend/internal/repos"
	"github.com/preceptorly/feedback-backend/internal/requestdata"
	"github.com/preceptorly/feedback-backend/internal/types"
)

type JWTClaims struct {
	jwt.RegisteredClaims
}

type AuthService interface {
	RegisterPreceptor(ctx context.Context, preceptor *types.Preceptor) error
	LoginPreceptor(ctx context.Context, email, password string) (string, string, error)
	RefreshPreceptor(ctx context.Context) (string, string, error)
	LogoutPreceptor(ctx context.Context) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	preceptorRepo repos.PreceptorRepo
	tokenRepo     repos.PreceptorTokenRepo
	jwtSecretKey  string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	preceptorRepo repos.PreceptorRepo,
	tokenRepo repos.PreceptorTokenRepo,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	serviceLog := log.With("service", "AuthService")
	return &authService{
		db:            db,
		log:           serviceLog,
		preceptorRepo: preceptorRepo,
		tokenRepo:     tokenRepo,
		jwtSecretKey:  jwtSecretKey,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

var reValidEmail = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

func (as *authService) RegisterPreceptor(ctx context.Context, preceptor *types.Preceptor) error {
	preceptor.Email = strings.ToLower(strings.TrimSpace(preceptor.Email))
	preceptor.FirstName = strings.TrimSpace(preceptor.FirstName)
	preceptor.LastName = strings.TrimSpace(preceptor.LastName)
	preceptor.Unit = strings.TrimSpace(preceptor.Unit)

	if !reValidEmail.MatchString(preceptor.Email) {
		return fmt.Errorf("invalid email address")
	}
	if len(preceptor.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	exists, exErr := as.preceptorRepo.EmailExists(ctx, nil, preceptor.Email)
	if exErr != nil {
		return fmt.Errorf("failed to check email: %w", exErr)
	}
	if exists {
		return fmt.Errorf("email already registered")
	}

	hashed, hErr := bcrypt.GenerateFromPassword([]byte(preceptor.Password), bcrypt.DefaultCost)
	if hErr != nil {
		return fmt.Errorf("failed to hash password: %w", hErr)
	}
	preceptor.Password = string(hashed)

	return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		preceptor.ID = uuid.New()
		if _, cErr := as.preceptorRepo.Create(ctx, tx, []*types.Preceptor{preceptor}); cErr != nil {
			return fmt.Errorf("failed to create preceptor: %w", cErr)
		}
		return nil
	})
}

func (as *authService) LoginPreceptor(ctx context.Context, email, password string) (string, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	preceptors, pErr := as.preceptorRepo.GetByEmails(ctx, nil, []string{email})
	if pErr != nil {
		return "", "", fmt.Errorf("error retrieving preceptor by email: %w", pErr)
	}
	if len(preceptors) == 0 {
		return "", "", fmt.Errorf("invalid email or password")
	}

	preceptor := preceptors[0]
	if hErr := bcrypt.CompareHashAndPassword([]byte(preceptor.Password), []byte(password)); hErr != nil {
		return "", "", fmt.Errorf("invalid email or password")
	}

	var accessToken string
	var refreshToken string
	if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		foundTokens, ftErr := as.tokenRepo.GetByPreceptorIDs(ctx, tx, []uuid.UUID{preceptor.ID})
		if ftErr != nil {
			return fmt.Errorf("failed to check preceptor tokens: %w", ftErr)
		}
		var expired []*types.PreceptorToken
		for _, t := range foundTokens {
			if t != nil && t.ExpiresAt.Before(time.Now()) {
				expired = append(expired, t)
			}
		}
		if len(expired) > 0 {
			if dtErr := as.tokenRepo.FullDeleteByTokens(ctx, tx, expired); dtErr != nil {
				return fmt.Errorf("failed to delete expired tokens: %w", dtErr)
			}
		}

		tok, genErr := as.generateAccessToken(preceptor)
		if genErr != nil {
			return fmt.Errorf("generate access token error: %w", genErr)
		}
		accessToken = tok
		refreshToken = uuid.New().String()
		preceptorToken := types.PreceptorToken{
			ID:           uuid.New(),
			PreceptorID:  preceptor.ID,
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresAt:    time.Now().Add(as.refreshTTL),
		}
		if _, ctErr := as.tokenRepo.Create(ctx, tx, []*types.PreceptorToken{&preceptorToken}); ctErr != nil {
			as.log.Warn("Create preceptor token error", "error", ctErr)
			return fmt.Errorf("create preceptor token error: %w", ctErr)
		}
		return nil
	}); err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (as *authService) RefreshPreceptor(ctx context.Context) (string, string, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return "", "", fmt.Errorf("no request data found in context")
	}
	if rd.RefreshToken == "" {
		return "", "", fmt.Errorf("refresh token not found in request data")
	}

	var accessToken string
	var newRefreshTokenStr string
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		foundTokens, ftErr := as.tokenRepo.GetByRefreshTokens(ctx, tx, []string{rd.RefreshToken})
		if ftErr != nil {
			as.log.Warn("Error fetching refresh token", "error", ftErr)
			return fmt.Errorf("error fetching refresh token: %w", ftErr)
		}
		if len(foundTokens) == 0 || foundTokens[0] == nil {
			return fmt.Errorf("refresh token not recognized")
		}
		existingToken := foundTokens[0]

		const expiryBuffer = 5 * time.Minute
		if existingToken.ExpiresAt.Add(expiryBuffer).Before(time.Now()) {
			if dtErr := as.tokenRepo.FullDeleteByTokens(ctx, tx, []*types.PreceptorToken{existingToken}); dtErr != nil {
				as.log.Warn("Refresh token expired, error deleting", "error", dtErr)
				return fmt.Errorf("refresh token expired, error deleting: %w", dtErr)
			}
			return fmt.Errorf("refresh token expired")
		}

		preceptors, pErr := as.preceptorRepo.GetByIDs(ctx, tx, []uuid.UUID{existingToken.PreceptorID})
		if pErr != nil {
			return fmt.Errorf("failed to load preceptor for refresh: %w", pErr)
		}
		if len(preceptors) == 0 {
			return fmt.Errorf("no preceptor found for the given refresh token")
		}
		preceptor := preceptors[0]

		tok, genErr := as.generateAccessToken(preceptor)
		if genErr != nil {
			return fmt.Errorf("failed to generate new access token: %w", genErr)
		}
		accessToken = tok
		newRefreshTokenStr = uuid.New().String()
		newToken := types.PreceptorToken{
			ID:           uuid.New(),
			PreceptorID:  preceptor.ID,
			AccessToken:  tok,
			RefreshToken: newRefreshTokenStr,
			ExpiresAt:    time.Now().Add(as.refreshTTL),
		}
		if _, cErr := as.tokenRepo.Create(ctx, tx, []*types.PreceptorToken{&newToken}); cErr != nil {
			return fmt.Errorf("failed to create new preceptor token: %w", cErr)
		}
		if dErr := as.tokenRepo.FullDeleteByTokens(ctx, tx, []*types.PreceptorToken{existingToken}); dErr != nil {
			return fmt.Errorf("failed to remove old refresh token: %w", dErr)
		}
		return nil
	})
	if err != nil {
		return "", "", err
	}
	return accessToken, newRefreshTokenStr, nil
}

func (as *authService) LogoutPreceptor(ctx context.Context) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return fmt.Errorf("no request data found in context")
	}
	if rd.TokenString == "" {
		return fmt.Errorf("access token in request data empty")
	}
	return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		foundTokens, ftErr := as.tokenRepo.GetByAccessTokens(ctx, tx, []string{rd.TokenString})
		if ftErr != nil {
			as.log.Warn("Error finding preceptor token from token string", "error", ftErr)
			return fmt.Errorf("error finding preceptor token: %w", ftErr)
		}
		if len(foundTokens) == 0 {
			return nil
		}
		if tdErr := as.tokenRepo.FullDeleteByTokens(ctx, tx, foundTokens); tdErr != nil {
			as.log.Warn("Error deleting preceptor token", "error", tdErr)
			return fmt.Errorf("error deleting preceptor token: %w", tdErr)
		}
		return nil
	})
}

func (as *authService) generateAccessToken(preceptor *types.Preceptor) (string, error) {
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   preceptor.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, nil
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return ctx, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, fmt.Errorf("invalid or expired JWT token")
	}
	preceptorID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid preceptor id in token: %w", err)
	}

	var refreshTokenStr string
	foundTokens, ftErr := as.tokenRepo.GetByAccessTokens(ctx, nil, []string{tokenString})
	if ftErr != nil {
		as.log.Warn("Error fetching preceptor token by access token", "error", ftErr)
		return ctx, fmt.Errorf("failed to fetch preceptor token: %w", ftErr)
	}
	if len(foundTokens) == 0 {
		return ctx, fmt.Errorf("access token not recognized")
	}
	refreshTokenStr = foundTokens[0].RefreshToken

	rd := &requestdata.RequestData{
		TokenString:  tokenString,
		RefreshToken: refreshTokenStr,
		PreceptorID:  preceptorID,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}
