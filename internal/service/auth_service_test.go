package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fueltrack/api/internal/domain"
	"github.com/fueltrack/api/internal/util"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *memUserRepo) Create(ctx context.Context, email string, passwordHash, passwordSalt []byte, name *string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return nil, &pgconn.PgError{Code: "23505"}
		}
	}
	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: append([]byte(nil), passwordHash...),
		PasswordSalt: append([]byte(nil), passwordSalt...),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.users[user.ID] = user
	copied := *user
	return &copied, nil
}

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *memUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *u
	return &copied, nil
}

func (r *memUserRepo) UpdateName(ctx context.Context, id uuid.UUID, name string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	u.Name = &name
	u.UpdatedAt = time.Now()
	copied := *u
	return &copied, nil
}

func (r *memUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash, passwordSalt []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = append([]byte(nil), passwordHash...)
	u.PasswordSalt = append([]byte(nil), passwordSalt...)
	u.UpdatedAt = time.Now()
	return nil
}

func (r *memUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

func (r *memUserRepo) setVerified(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.IsVerified = true
	}
}

func (r *memUserRepo) setPassword(id uuid.UUID, hash, salt []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.PasswordHash = append([]byte(nil), hash...)
		u.PasswordSalt = append([]byte(nil), salt...)
	}
}

func (r *memUserRepo) setEmail(id uuid.UUID, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email && u.ID != id {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	if u, ok := r.users[id]; ok {
		u.Email = email
		u.IsVerified = true
	}
	return nil
}

type memTokenRepo struct {
	mu     sync.Mutex
	users  *memUserRepo
	tokens map[uuid.UUID]*domain.OneTimeToken
}

func newMemTokenRepo(users *memUserRepo) *memTokenRepo {
	return &memTokenRepo{users: users, tokens: make(map[uuid.UUID]*domain.OneTimeToken)}
}

func (r *memTokenRepo) Create(ctx context.Context, userID uuid.UUID, purpose domain.TokenPurpose, newEmail *string, secretHash, secretSalt []byte, expiresAt time.Time) (*domain.OneTimeToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token := &domain.OneTimeToken{
		ID:         uuid.New(),
		UserID:     userID,
		Purpose:    purpose,
		NewEmail:   newEmail,
		SecretHash: append([]byte(nil), secretHash...),
		SecretSalt: append([]byte(nil), secretSalt...),
		ExpiresAt:  expiresAt,
		CreatedAt:  time.Now(),
	}
	r.tokens[token.ID] = token
	copied := *token
	return &copied, nil
}

func (r *memTokenRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.OneTimeToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *token
	return &copied, nil
}

func (r *memTokenRepo) markUsed(id uuid.UUID) error {
	token, ok := r.tokens[id]
	if !ok {
		return sql.ErrNoRows
	}
	if token.UsedAt != nil {
		return domain.ErrTokenConsumed
	}
	now := time.Now()
	token.UsedAt = &now
	return nil
}

func (r *memTokenRepo) ConsumeVerification(ctx context.Context, tokenID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.markUsed(tokenID); err != nil {
		return err
	}
	r.users.setVerified(userID)
	return nil
}

func (r *memTokenRepo) ConsumeReset(ctx context.Context, tokenID, userID uuid.UUID, passwordHash, passwordSalt []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.markUsed(tokenID); err != nil {
		return err
	}
	r.users.setPassword(userID, passwordHash, passwordSalt)
	now := time.Now()
	for _, token := range r.tokens {
		if token.UserID == userID && token.Purpose == domain.PurposePasswordReset && token.UsedAt == nil && token.ID != tokenID {
			token.UsedAt = &now
		}
	}
	return nil
}

func (r *memTokenRepo) ConsumeEmailChange(ctx context.Context, tokenID, userID uuid.UUID, newEmail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.markUsed(tokenID); err != nil {
		return err
	}
	return r.users.setEmail(userID, newEmail)
}

type memSessionRepo struct {
	mu       sync.Mutex
	seq      int64
	sessions []*domain.RefreshSession
}

func (r *memSessionRepo) Create(ctx context.Context, userID uuid.UUID, tokenHash, tokenSalt []byte, expiresAt time.Time) (*domain.RefreshSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	session := &domain.RefreshSession{
		ID:        r.seq,
		UserID:    userID,
		TokenHash: append([]byte(nil), tokenHash...),
		TokenSalt: append([]byte(nil), tokenSalt...),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	r.sessions = append(r.sessions, session)
	copied := *session
	return &copied, nil
}

func (r *memSessionRepo) FindRecentActive(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]domain.RefreshSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.RefreshSession{}
	for i := len(r.sessions) - 1; i >= 0 && len(out) < limit; i-- {
		s := r.sessions[i]
		if s.UserID == userID && s.RevokedAt == nil && now.Before(s.ExpiresAt) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memSessionRepo) RevokeAllForUser(ctx context.Context, userID uuid.UUID, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.UserID == userID && s.RevokedAt == nil {
			revokedAt := now
			s.RevokedAt = &revokedAt
		}
	}
	return nil
}

type fakeMailer struct {
	mu               sync.Mutex
	verificationTo   []string
	verificationLink []string
	resetTo          []string
	resetLink        []string
	changeTo         []string
	changeLink       []string
	err              error
}

func (m *fakeMailer) SendVerificationLink(ctx context.Context, email, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verificationTo = append(m.verificationTo, email)
	m.verificationLink = append(m.verificationLink, link)
	return m.err
}

func (m *fakeMailer) SendPasswordResetLink(ctx context.Context, email, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetTo = append(m.resetTo, email)
	m.resetLink = append(m.resetLink, link)
	return m.err
}

func (m *fakeMailer) SendEmailChangeLink(ctx context.Context, email, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changeTo = append(m.changeTo, email)
	m.changeLink = append(m.changeLink, link)
	return m.err
}

type allowAllLimiter struct{}

func (allowAllLimiter) Allow(string) bool { return true }

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(string) bool { return false }

type authFixture struct {
	auth     *AuthService
	users    *memUserRepo
	tokens   *memTokenRepo
	sessions *memSessionRepo
	mailer   *fakeMailer
}

func newAuthFixture() *authFixture {
	users := newMemUserRepo()
	tokens := newMemTokenRepo(users)
	sessions := &memSessionRepo{}
	mailer := &fakeMailer{}
	auth := NewAuthService(
		users, tokens, sessions, mailer,
		util.NewJWTManager("access-secret", time.Minute),
		util.NewJWTManager("refresh-secret", time.Hour),
		allowAllLimiter{}, "http://app.test", 30*time.Minute,
	)
	return &authFixture{auth: auth, users: users, tokens: tokens, sessions: sessions, mailer: mailer}
}

func lastToken(links []string) string {
	link := links[len(links)-1]
	parts := strings.Split(link, "/")
	return parts[len(parts)-1]
}

func TestRegisterSendsVerificationLinkAndLoginIsRefused(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	user, err := f.auth.Register(ctx, "a@x.com", "Passw0rd!", nil)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.IsVerified {
		t.Fatalf("expected new user to be unverified")
	}
	if len(f.mailer.verificationLink) != 1 {
		t.Fatalf("expected one verification mail, got %d", len(f.mailer.verificationLink))
	}
	if !strings.HasPrefix(f.mailer.verificationLink[0], "http://app.test/v1/auth/verify-email/confirm/") {
		t.Fatalf("unexpected verification link: %s", f.mailer.verificationLink[0])
	}

	if _, err := f.auth.Login(ctx, "a@x.com", "Passw0rd!"); !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("expected ErrEmailNotVerified, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, "a@x.com", "Passw0rd!", nil); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if _, err := f.auth.Register(ctx, "a@x.com", "OtherPass!1", nil); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterSurvivesMailFailure(t *testing.T) {
	f := newAuthFixture()
	f.mailer.err = errors.New("smtp down")

	if _, err := f.auth.Register(context.Background(), "a@x.com", "Passw0rd!", nil); err != nil {
		t.Fatalf("expected registration to succeed despite mail failure, got %v", err)
	}
}

func TestLoginWrongPasswordAndUnknownEmailAreIndistinguishable(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, "a@x.com", "Passw0rd!", nil); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	_, errWrong := f.auth.Login(ctx, "a@x.com", "not-the-password")
	_, errUnknown := f.auth.Login(ctx, "ghost@x.com", "Passw0rd!")
	if !errors.Is(errWrong, ErrInvalidCredentials) || !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v and %v", errWrong, errUnknown)
	}
}

func TestVerifyEmailLifecycle(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	user, err := f.auth.Register(ctx, "a@x.com", "Passw0rd!", nil)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	token := lastToken(f.mailer.verificationLink)

	if err := f.auth.VerifyEmail(ctx, token); err != nil {
		t.Fatalf("VerifyEmail returned error: %v", err)
	}
	stored, err := f.users.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if !stored.IsVerified {
		t.Fatalf("expected user to be verified")
	}

	if err := f.auth.VerifyEmail(ctx, token); !errors.Is(err, ErrTokenUsed) {
		t.Fatalf("expected ErrTokenUsed on second redemption, got %v", err)
	}
	if err := f.auth.VerifyEmail(ctx, "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for malformed token, got %v", err)
	}
	if err := f.auth.VerifyEmail(ctx, uuid.NewString()+".deadbeef"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for unknown id, got %v", err)
	}
}

func TestVerifyEmailWrongSecret(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, "a@x.com", "Passw0rd!", nil); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	token := lastToken(f.mailer.verificationLink)
	id, _, err := util.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken returned error: %v", err)
	}
	forged := util.FormatToken(id, strings.Repeat("f", 64))
	if err := f.auth.VerifyEmail(ctx, forged); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestVerifyEmailExpiredToken(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	user, err := f.auth.Register(ctx, "a@x.com", "Passw0rd!", nil)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	secret, err := util.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret returned error: %v", err)
	}
	hash, salt, err := util.DeriveSecret(secret)
	if err != nil {
		t.Fatalf("DeriveSecret returned error: %v", err)
	}
	row, err := f.tokens.Create(ctx, user.ID, domain.PurposeEmailVerification, nil, hash, salt, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := f.auth.VerifyEmail(ctx, util.FormatToken(row.ID, secret)); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyEmailRejectsTokenOfOtherPurpose(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, "a@x.com", "Passw0rd!", nil); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if err := f.auth.ForgotPassword(ctx, "a@x.com"); err != nil {
		t.Fatalf("ForgotPassword returned error: %v", err)
	}
	resetToken := lastToken(f.mailer.resetLink)
	if err := f.auth.VerifyEmail(ctx, resetToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for reset token on verify flow, got %v", err)
	}
}

func TestVerifyEmailConcurrentRedemption(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, "a@x.com", "Passw0rd!", nil); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	token := lastToken(f.mailer.verificationLink)

	const attempts = 8
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- f.auth.VerifyEmail(ctx, token)
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrTokenUsed):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one successful redemption, got %d", successes)
	}
}

func TestForgotPasswordUniformOutcome(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, "real-registered@x.com", "Passw0rd!", nil); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if err := f.auth.ForgotPassword(ctx, "real-registered@x.com"); err != nil {
		t.Fatalf("expected nil for registered email, got %v", err)
	}
	if err := f.auth.ForgotPassword(ctx, "nonexistent@x.com"); err != nil {
		t.Fatalf("expected nil for unknown email, got %v", err)
	}
	if len(f.mailer.resetLink) != 1 {
		t.Fatalf("expected exactly one reset mail, got %d", len(f.mailer.resetLink))
	}
}

func TestForgotPasswordRateLimited(t *testing.T) {
	f := newAuthFixture()
	f.auth.limiter = denyAllLimiter{}

	if err := f.auth.ForgotPassword(context.Background(), "a@x.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestResetPasswordInvalidatesSiblingTokens(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, "a@x.com", "Passw0rd!", nil); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if err := f.auth.VerifyEmail(ctx, lastToken(f.mailer.verificationLink)); err != nil {
		t.Fatalf("VerifyEmail returned error: %v", err)
	}

	if err := f.auth.ForgotPassword(ctx, "a@x.com"); err != nil {
		t.Fatalf("ForgotPassword returned error: %v", err)
	}
	firstToken := lastToken(f.mailer.resetLink)
	if err := f.auth.ForgotPassword(ctx, "a@x.com"); err != nil {
		t.Fatalf("ForgotPassword returned error: %v", err)
	}
	secondToken := lastToken(f.mailer.resetLink)

	if err := f.auth.ResetPassword(ctx, firstToken, "BrandNew!42"); err != nil {
		t.Fatalf("ResetPassword returned error: %v", err)
	}
	if _, err := f.auth.Login(ctx, "a@x.com", "BrandNew!42"); err != nil {
		t.Fatalf("expected login with new password to succeed, got %v", err)
	}
	if _, err := f.auth.Login(ctx, "a@x.com", "Passw0rd!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password to be rejected, got %v", err)
	}

	if err := f.auth.ResetPassword(ctx, secondToken, "Another!42"); !errors.Is(err, ErrTokenUsed) {
		t.Fatalf("expected sibling token to be voided, got %v", err)
	}
}

func TestRefreshIsNonRotatingUntilLogout(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, "a@x.com", "Passw0rd!", nil); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if err := f.auth.VerifyEmail(ctx, lastToken(f.mailer.verificationLink)); err != nil {
		t.Fatalf("VerifyEmail returned error: %v", err)
	}
	result, err := f.auth.Login(ctx, "a@x.com", "Passw0rd!")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	for i := 0; i < 3; i++ {
		accessToken, err := f.auth.Refresh(ctx, result.RefreshToken)
		if err != nil {
			t.Fatalf("Refresh %d returned error: %v", i, err)
		}
		if accessToken == "" {
			t.Fatalf("expected a non-empty access token")
		}
	}

	if err := f.auth.Logout(ctx, result.RefreshToken); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if _, err := f.auth.Refresh(ctx, result.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken after logout, got %v", err)
	}
}

func TestLogoutRevokesEverySession(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, "a@x.com", "Passw0rd!", nil); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if err := f.auth.VerifyEmail(ctx, lastToken(f.mailer.verificationLink)); err != nil {
		t.Fatalf("VerifyEmail returned error: %v", err)
	}
	first, err := f.auth.Login(ctx, "a@x.com", "Passw0rd!")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	second, err := f.auth.Login(ctx, "a@x.com", "Passw0rd!")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if err := f.auth.Logout(ctx, second.RefreshToken); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if _, err := f.auth.Refresh(ctx, first.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected first session to be revoked too, got %v", err)
	}
}

func TestLogoutWithGarbageTokenSucceeds(t *testing.T) {
	f := newAuthFixture()
	if err := f.auth.Logout(context.Background(), "not-a-jwt"); err != nil {
		t.Fatalf("expected logout to swallow verification failure, got %v", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, "a@x.com", "Passw0rd!", nil); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if err := f.auth.VerifyEmail(ctx, lastToken(f.mailer.verificationLink)); err != nil {
		t.Fatalf("VerifyEmail returned error: %v", err)
	}
	result, err := f.auth.Login(ctx, "a@x.com", "Passw0rd!")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	// Signed with the access secret, so the refresh key must reject it.
	if _, err := f.auth.Refresh(ctx, result.AccessToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestEmailChangeLifecycle(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	user, err := f.auth.Register(ctx, "a@x.com", "Passw0rd!", nil)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if err := f.auth.VerifyEmail(ctx, lastToken(f.mailer.verificationLink)); err != nil {
		t.Fatalf("VerifyEmail returned error: %v", err)
	}

	if err := f.auth.RequestEmailChange(ctx, user.ID, "b@x.com"); err != nil {
		t.Fatalf("RequestEmailChange returned error: %v", err)
	}
	if len(f.mailer.changeTo) != 1 || f.mailer.changeTo[0] != "b@x.com" {
		t.Fatalf("expected change mail sent to the new address, got %v", f.mailer.changeTo)
	}
	token := lastToken(f.mailer.changeLink)

	if err := f.auth.ConfirmEmailChange(ctx, token); err != nil {
		t.Fatalf("ConfirmEmailChange returned error: %v", err)
	}
	if _, err := f.auth.Login(ctx, "b@x.com", "Passw0rd!"); err != nil {
		t.Fatalf("expected login with new email to succeed, got %v", err)
	}
	if _, err := f.auth.Login(ctx, "a@x.com", "Passw0rd!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old email to be gone, got %v", err)
	}

	if err := f.auth.ConfirmEmailChange(ctx, token); !errors.Is(err, ErrTokenUsed) {
		t.Fatalf("expected ErrTokenUsed on replay, got %v", err)
	}
}

func TestRequestEmailChangeTakenAddress(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	user, err := f.auth.Register(ctx, "a@x.com", "Passw0rd!", nil)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if _, err := f.auth.Register(ctx, "b@x.com", "Passw0rd!", nil); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if err := f.auth.RequestEmailChange(ctx, user.ID, "b@x.com"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestVerifyAccessToken(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, "a@x.com", "Passw0rd!", nil); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if err := f.auth.VerifyEmail(ctx, lastToken(f.mailer.verificationLink)); err != nil {
		t.Fatalf("VerifyEmail returned error: %v", err)
	}
	result, err := f.auth.Login(ctx, "a@x.com", "Passw0rd!")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	identity, err := f.auth.VerifyAccessToken(result.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccessToken returned error: %v", err)
	}
	if identity.UserID != result.User.ID || identity.Email != "a@x.com" {
		t.Fatalf("unexpected identity: %+v", identity)
	}

	if _, err := f.auth.VerifyAccessToken("garbage"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := f.auth.VerifyAccessToken(result.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected refresh token to be rejected by the access guard, got %v", err)
	}
}

func TestFullCredentialScenario(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, "a@x.com", "Passw0rd!", nil); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if err := f.auth.VerifyEmail(ctx, lastToken(f.mailer.verificationLink)); err != nil {
		t.Fatalf("VerifyEmail returned error: %v", err)
	}
	result, err := f.auth.Login(ctx, "a@x.com", "Passw0rd!")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatalf("expected both tokens to be issued")
	}
	if _, err := f.auth.Refresh(ctx, result.RefreshToken); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if err := f.auth.Logout(ctx, result.RefreshToken); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if _, err := f.auth.Refresh(ctx, result.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken after logout, got %v", err)
	}
}
