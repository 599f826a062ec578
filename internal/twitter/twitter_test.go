package twitter

import (
	"context"
	"testing"

	"github.com/C0l0red/twitter-client/internal/config"
	"github.com/C0l0red/twitter-client/internal/models"
	"github.com/C0l0red/twitter-client/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB creates an in-memory SQLite database for testing.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Tweet{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps every query on the same :memory: database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

// newTestClient points a Client at the given mock upstream.
func newTestClient(upstream string) *Client {
	return NewClient(&config.Config{
		TwitterAPIKey:         "app-key",
		TwitterAPISecret:      "app-secret",
		TwitterAuthBaseURL:    upstream,
		TwitterAPIBaseURL:     upstream + "/1.1",
		TwitterTimeoutSeconds: 5,
	})
}

// createUser persists a fresh unlinked user.
func createUser(t *testing.T, users repository.UserRepository, username string) *models.User {
	t.Helper()

	user := &models.User{Username: username, Password: "irrelevant-hash"}
	require.NoError(t, users.Create(context.Background(), user))
	return user
}

// reload fetches the latest persisted state of a user.
func reload(t *testing.T, users repository.UserRepository, id uint) *models.User {
	t.Helper()

	user, err := users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return user
}

// userRepoStub is a function-field UserRepository test double.
type userRepoStub struct {
	getByIDFn           func(ctx context.Context, id uint) (*models.User, error)
	getByUsernameFoldFn func(ctx context.Context, username string) (*models.User, error)
	createFn            func(ctx context.Context, user *models.User) error
	updateFn            func(ctx context.Context, user *models.User) error
	deleteFn            func(ctx context.Context, id uint) error
	listFn              func(ctx context.Context, limit, offset int) ([]models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return nil, models.NewNotFoundError("User", id)
}

func (s *userRepoStub) GetByUsernameFold(ctx context.Context, username string) (*models.User, error) {
	if s.getByUsernameFoldFn != nil {
		return s.getByUsernameFoldFn(ctx, username)
	}
	return nil, nil
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	if s.createFn != nil {
		return s.createFn(ctx, user)
	}
	return nil
}

func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, user)
	}
	return nil
}

func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}

func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	if s.listFn != nil {
		return s.listFn(ctx, limit, offset)
	}
	return nil, nil
}
