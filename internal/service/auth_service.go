package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-edu-api/internal/dto"
	"github.com/noah-isme/gema-edu-api/internal/ids"
	"github.com/noah-isme/gema-edu-api/internal/models"
	"github.com/noah-isme/gema-edu-api/internal/observability"
	"github.com/noah-isme/gema-edu-api/internal/repository"
)

const (
	tokenTypeAccess = "access"
	tokenTypeBearer = "Bearer"
)

// AuthConfig configures token issuance.
type AuthConfig struct {
	Secret       string
	Issuer       string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	StoreTimeout time.Duration
}

// ClientInfo describes the network origin of an authentication request.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// Claims are the verified identity claims carried by an access token.
type Claims struct {
	UserID    uint
	Email     string
	Role      models.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type accessClaims struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	Type  string      `json:"typ"`
	jwt.RegisteredClaims
}

// AuthService issues, verifies, rotates and revokes credentials.
type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest, client ClientInfo) (dto.AuthResponse, error)
	// RejectMalformedLogin records a login POST whose body could not be decoded.
	RejectMalformedLogin(ctx context.Context, client ClientInfo)
	Register(ctx context.Context, req dto.RegisterRequest) (dto.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (dto.AuthResponse, error)
	Logout(ctx context.Context, refreshToken string) (uint, error)
	VerifyAccess(token string) (Claims, error)
	CurrentUser(ctx context.Context, id uint) (dto.AuthUserResponse, error)
}

type authService struct {
	users     repository.UserRepository
	tokens    repository.RefreshTokenRepository
	guard     LoginGuard
	validator *validator.Validate
	cfg       AuthConfig
	secret    []byte
	sanitizer *bluemonday.Policy
	now       func() time.Time
	logger    zerolog.Logger
}

// NewAuthService constructs the credential and token issuer.
func NewAuthService(users repository.UserRepository, tokens repository.RefreshTokenRepository, guard LoginGuard, validator *validator.Validate, cfg AuthConfig, logger zerolog.Logger) AuthService {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &authService{
		users:     users,
		tokens:    tokens,
		guard:     guard,
		validator: validator,
		cfg:       cfg,
		secret:    []byte(cfg.Secret),
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
		logger:    logger.With().Str("component", "auth_service").Logger(),
	}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest, client ClientInfo) (dto.AuthResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/gema-edu-api/internal/service/auth")
	ctx, span := tracer.Start(ctx, "auth.login")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		s.guard.RecordAttempt(ctx, req.Email, client.IP, false, ReasonInvalidRequest)
		observability.AuthEvents().WithLabelValues("login", "invalid_request").Inc()
		return dto.AuthResponse{}, err
	}

	email := normalizeEmail(req.Email)
	if s.guard.IsBlocked(ctx, email, client.IP) {
		s.guard.RecordAttempt(ctx, email, client.IP, false, ReasonBlocked)
		observability.AuthEvents().WithLabelValues("login", "blocked").Inc()
		span.SetStatus(codes.Error, "blocked")
		return dto.AuthResponse{}, ErrLoginBlocked.WithRetryAfter(s.guard.Window())
	}

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "user_lookup_failed")
			return dto.AuthResponse{}, err
		}
		burnPasswordCheck(req.Password)
		return dto.AuthResponse{}, s.rejectLogin(ctx, email, client, ReasonUnknownEmail)
	}
	span.SetAttributes(attribute.Int64("auth.user_id", int64(user.ID)))

	match, err := VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		s.logger.Error().Err(err).Uint("user_id", user.ID).Msg("stored password hash is unreadable")
	}
	if !match {
		return dto.AuthResponse{}, s.rejectLogin(ctx, email, client, ReasonInvalidPassword)
	}
	if !user.IsActive {
		return dto.AuthResponse{}, s.rejectLogin(ctx, email, client, ReasonInactive)
	}

	if user.TwoFactorEnabled {
		code := strings.TrimSpace(req.OTP)
		if code == "" {
			observability.AuthEvents().WithLabelValues("login", "otp_required").Inc()
			return dto.AuthResponse{}, ErrTwoFactorRequired
		}
		valid, err := totp.ValidateCustom(code, user.TwoFactorSecret, s.now().UTC(), totp.ValidateOpts{
			Period:    30,
			Skew:      1,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		})
		if err != nil || !valid {
			return dto.AuthResponse{}, s.rejectLogin(ctx, email, client, ReasonInvalidOTP)
		}
	}

	now := s.now().UTC()
	storeCtx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	if err := s.users.TouchLastLogin(storeCtx, user.ID, now); err != nil {
		s.logger.Warn().Err(err).Uint("user_id", user.ID).Msg("failed to update last login")
	} else {
		user.LastLoginAt = &now
	}
	cancel()

	resp, err := s.issueTokens(ctx, user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token_issue_failed")
		return dto.AuthResponse{}, err
	}

	s.guard.RecordAttempt(ctx, email, client.IP, true, "")
	observability.AuthEvents().WithLabelValues("login", "success").Inc()
	s.logger.Info().Uint("user_id", user.ID).Str("ip", client.IP).Msg("login succeeded")
	return resp, nil
}

func (s *authService) RejectMalformedLogin(ctx context.Context, client ClientInfo) {
	s.guard.RecordAttempt(ctx, "", client.IP, false, ReasonInvalidRequest)
	observability.AuthEvents().WithLabelValues("login", "invalid_request").Inc()
}

func (s *authService) rejectLogin(ctx context.Context, email string, client ClientInfo, reason string) error {
	s.guard.RecordAttempt(ctx, email, client.IP, false, reason)
	observability.AuthEvents().WithLabelValues("login", "failure").Inc()
	s.logger.Info().
		Str("ip", client.IP).
		Str("reason", reason).
		Str("correlation_id", observability.CorrelationID(ctx)).
		Msg("login rejected")
	return ErrInvalidCredentials
}

func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (dto.AuthResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/gema-edu-api/internal/service/auth")
	ctx, span := tracer.Start(ctx, "auth.register")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.AuthResponse{}, err
	}

	name := strings.TrimSpace(s.sanitizer.Sanitize(req.Name))
	if name == "" {
		return dto.AuthResponse{}, ErrInvalidArgument.WithMessage("name is required")
	}

	email := normalizeEmail(req.Email)
	if _, err := s.findByEmail(ctx, email); err == nil {
		return dto.AuthResponse{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.AuthResponse{}, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return dto.AuthResponse{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleStudent,
		IsActive:     true,
	}
	storeCtx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	if err := s.users.Create(storeCtx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.AuthResponse{}, ErrEmailTaken
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "user_create_failed")
		return dto.AuthResponse{}, storeError(storeCtx, err)
	}

	observability.AuthEvents().WithLabelValues("register", "success").Inc()
	s.logger.Info().Uint("user_id", user.ID).Msg("identity registered")
	return s.issueTokens(ctx, user)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (dto.AuthResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/gema-edu-api/internal/service/auth")
	ctx, span := tracer.Start(ctx, "auth.refresh")
	defer span.End()

	token, err := s.lookupRefresh(ctx, refreshToken)
	if err != nil {
		observability.AuthEvents().WithLabelValues("refresh", "failure").Inc()
		return dto.AuthResponse{}, err
	}

	now := s.now().UTC()
	if !token.Usable(now) {
		observability.AuthEvents().WithLabelValues("refresh", "failure").Inc()
		return dto.AuthResponse{}, ErrRefreshInvalid
	}

	storeCtx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	revoked, err := s.tokens.Revoke(storeCtx, token.ID, now)
	if err != nil {
		return dto.AuthResponse{}, storeError(storeCtx, err)
	}
	if !revoked {
		// Lost a race with another refresh of the same token.
		return dto.AuthResponse{}, ErrRefreshInvalid
	}

	user, err := s.users.GetByID(storeCtx, token.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AuthResponse{}, ErrRefreshInvalid
		}
		return dto.AuthResponse{}, storeError(storeCtx, err)
	}
	if !user.IsActive {
		return dto.AuthResponse{}, ErrRefreshInvalid
	}

	span.SetAttributes(attribute.Int64("auth.user_id", int64(user.ID)))
	observability.AuthEvents().WithLabelValues("refresh", "success").Inc()
	return s.issueTokens(ctx, user)
}

// Logout revokes the refresh token and returns its owner. Repeated calls succeed.
func (s *authService) Logout(ctx context.Context, refreshToken string) (uint, error) {
	token, err := s.lookupRefresh(ctx, refreshToken)
	if err != nil {
		return 0, err
	}
	if token.RevokedAt != nil {
		return token.UserID, nil
	}

	storeCtx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	if _, err := s.tokens.Revoke(storeCtx, token.ID, s.now().UTC()); err != nil {
		return 0, storeError(storeCtx, err)
	}
	observability.AuthEvents().WithLabelValues("logout", "success").Inc()
	return token.UserID, nil
}

func (s *authService) VerifyAccess(token string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	var claims accessClaims
	if _, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenMalformed.Wrap(err)
	}

	if claims.Type != tokenTypeAccess || !claims.Role.Valid() {
		return Claims{}, ErrTokenMalformed
	}
	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || userID == 0 {
		return Claims{}, ErrTokenMalformed
	}

	verified := Claims{
		UserID: uint(userID),
		Email:  claims.Email,
		Role:   claims.Role,
	}
	if claims.IssuedAt != nil {
		verified.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		verified.ExpiresAt = claims.ExpiresAt.Time
	}
	return verified, nil
}

func (s *authService) CurrentUser(ctx context.Context, id uint) (dto.AuthUserResponse, error) {
	storeCtx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	user, err := s.users.GetByID(storeCtx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AuthUserResponse{}, ErrUserNotFound
		}
		return dto.AuthUserResponse{}, storeError(storeCtx, err)
	}
	return dto.NewAuthUserResponse(user), nil
}

func (s *authService) findByEmail(ctx context.Context, email string) (models.User, error) {
	storeCtx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	user, err := s.users.GetByEmail(storeCtx, email)
	return user, storeError(storeCtx, err)
}

func (s *authService) lookupRefresh(ctx context.Context, raw string) (models.RefreshToken, error) {
	id, secret, ok := strings.Cut(strings.TrimSpace(raw), ".")
	if !ok || id == "" || secret == "" {
		return models.RefreshToken{}, ErrRefreshInvalid
	}

	storeCtx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	token, err := s.tokens.Find(storeCtx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RefreshToken{}, ErrRefreshInvalid
		}
		return models.RefreshToken{}, storeError(storeCtx, err)
	}

	if subtle.ConstantTimeCompare([]byte(hashRefreshSecret(secret)), []byte(token.TokenHash)) != 1 {
		return models.RefreshToken{}, ErrRefreshInvalid
	}
	return token, nil
}

func (s *authService) issueTokens(ctx context.Context, user models.User) (dto.AuthResponse, error) {
	now := s.now().UTC()
	expiresAt := now.Add(s.cfg.AccessTTL)

	claims := accessClaims{
		Email: user.Email,
		Role:  user.Role,
		Type:  tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        ids.NewAt(now),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return dto.AuthResponse{}, fmt.Errorf("sign access token: %w", err)
	}

	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return dto.AuthResponse{}, fmt.Errorf("generate refresh secret: %w", err)
	}
	secret := hex.EncodeToString(secretBytes)
	refresh := models.RefreshToken{
		ID:        ids.NewAt(now),
		UserID:    user.ID,
		TokenHash: hashRefreshSecret(secret),
		ExpiresAt: now.Add(s.cfg.RefreshTTL),
	}

	storeCtx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	if err := s.tokens.Create(storeCtx, &refresh); err != nil {
		return dto.AuthResponse{}, storeError(storeCtx, err)
	}

	return dto.AuthResponse{
		AccessToken:      access,
		RefreshToken:     refresh.ID + "." + secret,
		TokenType:        tokenTypeBearer,
		ExpiresAt:        expiresAt,
		RefreshExpiresAt: refresh.ExpiresAt,
		User:             dto.NewAuthUserResponse(user),
	}, nil
}

func hashRefreshSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
