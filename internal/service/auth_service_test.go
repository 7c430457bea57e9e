package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-edu-api/internal/apperror"
	"github.com/noah-isme/gema-edu-api/internal/dto"
	"github.com/noah-isme/gema-edu-api/internal/models"
	"github.com/noah-isme/gema-edu-api/internal/repository"
)

const testTOTPSecret = "JBSWY3DPEHPK3PXP"

type authFixture struct {
	db    *gorm.DB
	svc   AuthService
	guard LoginGuard
	clock *testClock
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	db := setupServiceDB(t)
	clock := newTestClock()

	guard := NewLoginGuard(repository.NewLoginAttemptRepository(db), DefaultLoginGuardConfig(), testLogger())
	guard.(*loginGuard).now = clock.Now

	svc := NewAuthService(
		repository.NewUserRepository(db),
		repository.NewRefreshTokenRepository(db),
		guard,
		testValidator(),
		AuthConfig{Secret: "test-secret", Issuer: "gema-test", AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour, StoreTimeout: time.Second},
		testLogger(),
	)
	svc.(*authService).now = clock.Now

	return authFixture{db: db, svc: svc, guard: guard, clock: clock}
}

func (f authFixture) attempts(t *testing.T, success bool) []models.LoginAttempt {
	t.Helper()
	f.guard.Wait()
	var rows []models.LoginAttempt
	require.NoError(t, f.db.Where("success = ?", success).Order("id ASC").Find(&rows).Error)
	return rows
}

var testClient = ClientInfo{IP: "10.0.0.1", UserAgent: "go-test"}

func TestLoginIssuesVerifiableTokens(t *testing.T) {
	f := newAuthFixture(t)
	user := createTestUser(t, f.db, "ada@gema.test", "correct-horse", models.RoleInstructor)

	resp, err := f.svc.Login(context.Background(), dto.LoginRequest{Email: " ADA@gema.test ", Password: "correct-horse"}, testClient)
	require.NoError(t, err)
	require.Equal(t, "Bearer", resp.TokenType)
	require.Equal(t, user.ID, resp.User.ID)
	require.NotEmpty(t, resp.RefreshToken)

	claims, err := f.svc.VerifyAccess(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, "ada@gema.test", claims.Email)
	require.Equal(t, models.RoleInstructor, claims.Role)
	require.WithinDuration(t, f.clock.Now().Add(time.Hour), claims.ExpiresAt, time.Second)

	successes := f.attempts(t, true)
	require.Len(t, successes, 1)
	require.Equal(t, "ada@gema.test", successes[0].Email)
	require.Equal(t, "10.0.0.1", successes[0].IPAddress)
	require.Empty(t, f.attempts(t, false))

	var stored models.User
	require.NoError(t, f.db.First(&stored, user.ID).Error)
	require.NotNil(t, stored.LastLoginAt)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(t)
	createTestUser(t, f.db, "ada@gema.test", "correct-horse", models.RoleStudent)
	ctx := context.Background()

	_, unknownErr := f.svc.Login(ctx, dto.LoginRequest{Email: "nobody@gema.test", Password: "correct-horse"}, testClient)
	f.guard.Wait()
	_, wrongErr := f.svc.Login(ctx, dto.LoginRequest{Email: "ada@gema.test", Password: "wrong-horse"}, testClient)

	require.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	require.ErrorIs(t, wrongErr, ErrInvalidCredentials)
	require.Equal(t, unknownErr.Error(), wrongErr.Error())

	failures := f.attempts(t, false)
	require.Len(t, failures, 2)
	require.Equal(t, ReasonUnknownEmail, failures[0].FailureReason)
	require.Equal(t, ReasonInvalidPassword, failures[1].FailureReason)
}

func TestLoginRecordsInvalidRequests(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Login(context.Background(), dto.LoginRequest{Email: "not-an-email", Password: "x"}, testClient)
	require.Error(t, err)
	f.guard.Wait()
	f.svc.RejectMalformedLogin(context.Background(), testClient)

	failures := f.attempts(t, false)
	require.Len(t, failures, 2)
	require.Equal(t, ReasonInvalidRequest, failures[0].FailureReason)
	require.Equal(t, "not-an-email", failures[0].Email)
	require.Equal(t, ReasonInvalidRequest, failures[1].FailureReason)
	require.Empty(t, failures[1].Email)
	require.Equal(t, testClient.IP, failures[1].IPAddress)
}

func TestLoginRejectsInactiveIdentity(t *testing.T) {
	f := newAuthFixture(t)
	user := createTestUser(t, f.db, "ada@gema.test", "correct-horse", models.RoleStudent)
	require.NoError(t, f.db.Model(&user).Update("is_active", false).Error)

	_, err := f.svc.Login(context.Background(), dto.LoginRequest{Email: "ada@gema.test", Password: "correct-horse"}, testClient)
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.Equal(t, ReasonInactive, f.attempts(t, false)[0].FailureReason)
}

func TestLoginBlockedAfterRepeatedFailures(t *testing.T) {
	f := newAuthFixture(t)
	createTestUser(t, f.db, "ada@gema.test", "correct-horse", models.RoleStudent)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.svc.Login(ctx, dto.LoginRequest{Email: "ada@gema.test", Password: "wrong-horse"}, testClient)
		require.ErrorIs(t, err, ErrInvalidCredentials)
		f.guard.Wait()
	}

	_, err := f.svc.Login(ctx, dto.LoginRequest{Email: "ada@gema.test", Password: "correct-horse"}, testClient)
	require.ErrorIs(t, err, ErrLoginBlocked)
	require.Equal(t, 15*time.Minute, apperror.From(err).RetryAfter)

	f.clock.Advance(16 * time.Minute)
	_, err = f.svc.Login(ctx, dto.LoginRequest{Email: "ada@gema.test", Password: "correct-horse"}, testClient)
	require.NoError(t, err)
}

func TestLoginWithTwoFactor(t *testing.T) {
	f := newAuthFixture(t)
	user := createTestUser(t, f.db, "ada@gema.test", "correct-horse", models.RoleAdmin)
	require.NoError(t, f.db.Model(&user).Updates(map[string]interface{}{"two_factor_enabled": true, "two_factor_secret": testTOTPSecret}).Error)
	ctx := context.Background()

	_, err := f.svc.Login(ctx, dto.LoginRequest{Email: "ada@gema.test", Password: "correct-horse"}, testClient)
	require.ErrorIs(t, err, ErrTwoFactorRequired)
	require.Empty(t, f.attempts(t, false))

	_, err = f.svc.Login(ctx, dto.LoginRequest{Email: "ada@gema.test", Password: "correct-horse", OTP: staleCode(t, f.clock.Now())}, testClient)
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.Equal(t, ReasonInvalidOTP, f.attempts(t, false)[0].FailureReason)

	code, err := totp.GenerateCode(testTOTPSecret, f.clock.Now())
	require.NoError(t, err)
	resp, err := f.svc.Login(ctx, dto.LoginRequest{Email: "ada@gema.test", Password: "correct-horse", OTP: code}, testClient)
	require.NoError(t, err)
	require.True(t, resp.User.TwoFactorEnabled)
}

// staleCode returns a six digit code outside the accepted skew around now.
func staleCode(t *testing.T, now time.Time) string {
	t.Helper()
	accepted := map[string]bool{}
	for _, offset := range []time.Duration{-30 * time.Second, 0, 30 * time.Second} {
		code, err := totp.GenerateCode(testTOTPSecret, now.Add(offset))
		require.NoError(t, err)
		accepted[code] = true
	}
	for _, candidate := range []string{"000000", "111111", "222222", "333333"} {
		if !accepted[candidate] {
			return candidate
		}
	}
	t.Fatal("no stale code available")
	return ""
}

func TestLoginAcceptsLegacyBcryptHash(t *testing.T) {
	f := newAuthFixture(t)
	legacy, err := bcrypt.GenerateFromPassword([]byte("old-platform-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	user := models.User{Name: "Legacy", Email: "legacy@gema.test", PasswordHash: string(legacy), Role: models.RoleStudent, IsActive: true}
	require.NoError(t, f.db.Create(&user).Error)

	_, err = f.svc.Login(context.Background(), dto.LoginRequest{Email: "legacy@gema.test", Password: "old-platform-pass"}, testClient)
	require.NoError(t, err)

	_, err = f.svc.Login(context.Background(), dto.LoginRequest{Email: "legacy@gema.test", Password: "nope-nope"}, testClient)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyAccessRejectsBadTokens(t *testing.T) {
	f := newAuthFixture(t)
	createTestUser(t, f.db, "ada@gema.test", "correct-horse", models.RoleStudent)
	resp, err := f.svc.Login(context.Background(), dto.LoginRequest{Email: "ada@gema.test", Password: "correct-horse"}, testClient)
	require.NoError(t, err)

	_, err = f.svc.VerifyAccess("not-a-jwt")
	require.ErrorIs(t, err, ErrTokenMalformed)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Email: "ada@gema.test",
		Role:  models.RoleAdmin,
		Type:  tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    "gema-test",
			ExpiresAt: jwt.NewNumericDate(f.clock.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("someone-elses-secret"))
	require.NoError(t, err)
	_, err = f.svc.VerifyAccess(forged)
	require.ErrorIs(t, err, ErrTokenMalformed)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1", "role": "admin"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = f.svc.VerifyAccess(unsigned)
	require.ErrorIs(t, err, ErrTokenMalformed)

	f.clock.Advance(2 * time.Hour)
	_, err = f.svc.VerifyAccess(resp.AccessToken)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	f := newAuthFixture(t)
	createTestUser(t, f.db, "ada@gema.test", "correct-horse", models.RoleStudent)
	ctx := context.Background()

	first, err := f.svc.Login(ctx, dto.LoginRequest{Email: "ada@gema.test", Password: "correct-horse"}, testClient)
	require.NoError(t, err)

	second, err := f.svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = f.svc.Refresh(ctx, first.RefreshToken)
	require.ErrorIs(t, err, ErrRefreshInvalid)

	userID, err := f.svc.Logout(ctx, second.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, first.User.ID, userID)
	_, err = f.svc.Logout(ctx, second.RefreshToken)
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, second.RefreshToken)
	require.ErrorIs(t, err, ErrRefreshInvalid)

	for _, bogus := range []string{"", "garbage", first.RefreshToken[:27] + "deadbeef"} {
		_, err = f.svc.Refresh(ctx, bogus)
		require.ErrorIs(t, err, ErrRefreshInvalid, bogus)
	}
}

func TestRefreshTokenExpires(t *testing.T) {
	f := newAuthFixture(t)
	createTestUser(t, f.db, "ada@gema.test", "correct-horse", models.RoleStudent)
	resp, err := f.svc.Login(context.Background(), dto.LoginRequest{Email: "ada@gema.test", Password: "correct-horse"}, testClient)
	require.NoError(t, err)

	f.clock.Advance(25 * time.Hour)
	_, err = f.svc.Refresh(context.Background(), resp.RefreshToken)
	require.ErrorIs(t, err, ErrRefreshInvalid)
}

func TestRegisterCreatesStudent(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Register(ctx, dto.RegisterRequest{Name: "<b>Grace</b> Hopper", Email: "Grace@gema.test", Password: "cobol-rocks"})
	require.NoError(t, err)
	require.Equal(t, models.RoleStudent, resp.User.Role)
	require.Equal(t, "Grace Hopper", resp.User.Name)
	require.Equal(t, "grace@gema.test", resp.User.Email)

	_, err = f.svc.Register(ctx, dto.RegisterRequest{Name: "Grace", Email: "grace@gema.test", Password: "cobol-rocks"})
	require.ErrorIs(t, err, ErrEmailTaken)

	me, err := f.svc.CurrentUser(ctx, resp.User.ID)
	require.NoError(t, err)
	require.Equal(t, resp.User, me)
}

func TestLoginStoreTimeoutIsNotADenial(t *testing.T) {
	db := setupServiceDB(t)
	guard := NewLoginGuard(repository.NewLoginAttemptRepository(db), DefaultLoginGuardConfig(), testLogger())
	svc := NewAuthService(blockingUserRepo{}, repository.NewRefreshTokenRepository(db), guard, testValidator(),
		AuthConfig{Secret: "s", Issuer: "gema-test", StoreTimeout: 20 * time.Millisecond}, testLogger())

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "ada@gema.test", Password: "correct-horse"}, testClient)
	require.ErrorIs(t, err, ErrStoreTimeout)
	require.NotErrorIs(t, err, ErrInvalidCredentials)

	guard.Wait()
	var count int64
	require.NoError(t, db.Model(&models.LoginAttempt{}).Count(&count).Error)
	require.Zero(t, count)
}
