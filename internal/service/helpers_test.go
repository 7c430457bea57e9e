package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-edu-api/internal/database"
	"github.com/noah-isme/gema-edu-api/internal/models"
	"github.com/noah-isme/gema-edu-api/internal/repository"
)

func init() {
	PasswordParams = &argon2id.Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.ConnectSQLite(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedAccessControl(t *testing.T, db *gorm.DB) {
	t.Helper()
	svc := NewSeedService(repository.NewPermissionRepository(db), repository.NewUserRepository(db), testLogger())
	require.NoError(t, svc.SeedAccessControl(context.Background()))
}

func createTestUser(t *testing.T, db *gorm.DB, email, password string, role models.Role) models.User {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	user := models.User{Name: "Test " + string(role), Email: email, PasswordHash: hash, Role: role, IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	return user
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().UTC()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// blockingUserRepo never answers before the caller's deadline.
type blockingUserRepo struct {
	repository.UserRepository
}

func (blockingUserRepo) GetByID(ctx context.Context, id uint) (models.User, error) {
	<-ctx.Done()
	return models.User{}, ctx.Err()
}

func (blockingUserRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	<-ctx.Done()
	return models.User{}, ctx.Err()
}

func ptrUint(v uint) *uint {
	return &v
}
