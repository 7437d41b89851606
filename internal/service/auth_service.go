package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fueltrack/api/internal/domain"
	"github.com/fueltrack/api/internal/repository/ports"
	"github.com/fueltrack/api/internal/util"
)

// Mailer delivers confirmation links. The service only hands it a recipient
// and a fully formed URL; delivery failures never undo committed state.
type Mailer interface {
	SendVerificationLink(ctx context.Context, email, link string) error
	SendPasswordResetLink(ctx context.Context, email, link string) error
	SendEmailChangeLink(ctx context.Context, email, link string) error
}

// refreshMatchWindow bounds how many recent sessions a presented refresh
// token is hashed against. Sessions store the hash of the whole token, so
// matching cannot be done by id.
const refreshMatchWindow = 10

const defaultTokenTTL = 30 * time.Minute

// Identity is what the access guard extracts from a bearer token.
type Identity struct {
	UserID uuid.UUID
	Email  string
}

type LoginResult struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
}

// AuthService owns the credential and token lifecycle: registration, login,
// verification, password reset, refresh/logout and email change.
type AuthService struct {
	users    ports.UserRepository
	tokens   ports.TokenRepository
	sessions ports.SessionRepository
	mailer   Mailer
	access   *util.JWTManager
	refresh  *util.JWTManager
	limiter  RateLimiter
	baseURL  string
	tokenTTL time.Duration
}

func NewAuthService(
	users ports.UserRepository,
	tokens ports.TokenRepository,
	sessions ports.SessionRepository,
	mailer Mailer,
	access, refresh *util.JWTManager,
	limiter RateLimiter,
	baseURL string,
	tokenTTL time.Duration,
) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	if limiter == nil {
		limiter = NewMemoryRateLimiter(10*time.Minute, 3)
	}
	return &AuthService{
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		mailer:   mailer,
		access:   access,
		refresh:  refresh,
		limiter:  limiter,
		baseURL:  baseURL,
		tokenTTL: tokenTTL,
	}
}

// Register creates an unverified user and mails a verification link. The raw
// secret leaves the process only inside that link.
func (s *AuthService) Register(ctx context.Context, email, password string, name *string) (*domain.User, error) {
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	hash, salt, err := util.DeriveSecret(password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, email, hash, salt, name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	token, err := s.issueToken(ctx, user.ID, domain.PurposeEmailVerification, nil)
	if err != nil {
		return nil, err
	}
	link := s.baseURL + "/v1/auth/verify-email/confirm/" + token
	if err := s.mailer.SendVerificationLink(ctx, user.Email, link); err != nil {
		log.Printf("send verification link to %s: %v", user.Email, err)
	}
	return user, nil
}

// Login checks the password, refuses unverified accounts and mints an
// access/refresh token pair. The refresh token is persisted only as a salted
// hash of the full signed string.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !util.VerifySecret(password, user.PasswordSalt, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsVerified {
		return nil, ErrEmailNotVerified
	}

	accessToken, _, err := s.access.Generate(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	refreshToken, refreshExpiry, err := s.refresh.Generate(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	tokenHash, tokenSalt, err := util.DeriveSecret(refreshToken)
	if err != nil {
		return nil, err
	}
	if _, err := s.sessions.Create(ctx, user.ID, tokenHash, tokenSalt, refreshExpiry); err != nil {
		return nil, err
	}

	return &LoginResult{User: user, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// VerifyEmail redeems a verification token and flips the owner to verified.
// A consumed token always reports ErrTokenUsed afterwards, never success.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	row, err := s.checkToken(ctx, token, domain.PurposeEmailVerification)
	if err != nil {
		return err
	}
	if err := s.tokens.ConsumeVerification(ctx, row.ID, row.UserID); err != nil {
		if errors.Is(err, domain.ErrTokenConsumed) {
			return ErrTokenUsed
		}
		return err
	}
	return nil
}

// ForgotPassword issues a reset link when the address is registered. The
// outcome is identical either way so responses cannot be used to enumerate
// accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if !s.limiter.Allow("forgot:" + email) {
		return ErrRateLimited
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}

	token, err := s.issueToken(ctx, user.ID, domain.PurposePasswordReset, nil)
	if err != nil {
		return err
	}
	link := s.baseURL + "/v1/auth/reset-password/confirm/" + token
	if err := s.mailer.SendPasswordResetLink(ctx, user.Email, link); err != nil {
		log.Printf("send password reset link to %s: %v", user.Email, err)
	}
	return nil
}

// ResetPassword redeems a reset token, writes the new password and voids
// every other pending reset token for the same user.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	row, err := s.checkToken(ctx, token, domain.PurposePasswordReset)
	if err != nil {
		return err
	}
	hash, salt, err := util.DeriveSecret(newPassword)
	if err != nil {
		return err
	}
	if err := s.tokens.ConsumeReset(ctx, row.ID, row.UserID, hash, salt); err != nil {
		if errors.Is(err, domain.ErrTokenConsumed) {
			return ErrTokenUsed
		}
		return err
	}
	return nil
}

// Refresh mints a new access token for a valid refresh token. The session is
// deliberately not rotated or extended.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.refresh.Parse(refreshToken)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrUnauthorized
		}
		return "", err
	}
	if !user.IsVerified {
		return "", ErrUnauthorized
	}

	sessions, err := s.sessions.FindRecentActive(ctx, user.ID, time.Now(), refreshMatchWindow)
	if err != nil {
		return "", err
	}
	for i := range sessions {
		if util.VerifySecret(refreshToken, sessions[i].TokenSalt, sessions[i].TokenHash) {
			accessToken, _, err := s.access.Generate(user.ID, user.Email)
			if err != nil {
				return "", err
			}
			return accessToken, nil
		}
	}
	return "", ErrInvalidRefreshToken
}

// Logout revokes every active session of the token's owner. Verification
// failures are deliberately swallowed: logout always looks successful.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.refresh.Parse(refreshToken)
	if err != nil {
		return nil
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil
	}
	return s.sessions.RevokeAllForUser(ctx, userID, time.Now())
}

// RequestEmailChange issues a confirmation token carrying the requested new
// address and mails the link to that address.
func (s *AuthService) RequestEmailChange(ctx context.Context, userID uuid.UUID, newEmail string) error {
	existing, err := s.users.FindByEmail(ctx, newEmail)
	if err == nil && existing.ID != userID {
		return ErrEmailTaken
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if !s.limiter.Allow("emailchange:" + newEmail) {
		return ErrRateLimited
	}

	token, err := s.issueToken(ctx, userID, domain.PurposeEmailChange, &newEmail)
	if err != nil {
		return err
	}
	link := s.baseURL + "/v1/users/me/email/confirm/" + token
	if err := s.mailer.SendEmailChangeLink(ctx, newEmail, link); err != nil {
		log.Printf("send email change link to %s: %v", newEmail, err)
	}
	return nil
}

// ConfirmEmailChange redeems an email-change token, rewrites the user's
// email and marks the account verified in the same transaction.
func (s *AuthService) ConfirmEmailChange(ctx context.Context, token string) error {
	row, err := s.checkToken(ctx, token, domain.PurposeEmailChange)
	if err != nil {
		return err
	}
	if row.NewEmail == nil {
		return ErrInvalidToken
	}
	if err := s.tokens.ConsumeEmailChange(ctx, row.ID, row.UserID, *row.NewEmail); err != nil {
		if errors.Is(err, domain.ErrTokenConsumed) {
			return ErrTokenUsed
		}
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

// VerifyAccessToken is the guard surface: signature and expiry check plus
// identity extraction, no storage access.
func (s *AuthService) VerifyAccessToken(token string) (Identity, error) {
	claims, err := s.access.Parse(token)
	if err != nil {
		return Identity{}, ErrUnauthorized
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, ErrUnauthorized
	}
	return Identity{UserID: userID, Email: claims.Email}, nil
}

func (s *AuthService) issueToken(ctx context.Context, userID uuid.UUID, purpose domain.TokenPurpose, newEmail *string) (string, error) {
	secret, err := util.GenerateSecret()
	if err != nil {
		return "", err
	}
	hash, salt, err := util.DeriveSecret(secret)
	if err != nil {
		return "", err
	}
	row, err := s.tokens.Create(ctx, userID, purpose, newEmail, hash, salt, time.Now().Add(s.tokenTTL))
	if err != nil {
		return "", err
	}
	return util.FormatToken(row.ID, secret), nil
}

// checkToken runs the shared redemption checks. The three failure modes are
// distinct because clients surface different remediation text for each.
func (s *AuthService) checkToken(ctx context.Context, composite string, purpose domain.TokenPurpose) (*domain.OneTimeToken, error) {
	id, secret, err := util.ParseToken(composite)
	if err != nil {
		return nil, ErrInvalidToken
	}
	row, err := s.tokens.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if row.Purpose != purpose {
		return nil, ErrInvalidToken
	}
	if row.Used() {
		return nil, ErrTokenUsed
	}
	if row.Expired(time.Now()) {
		return nil, ErrTokenExpired
	}
	if !util.VerifySecret(secret, row.SecretSalt, row.SecretHash) {
		return nil, ErrInvalidToken
	}
	return row, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
