package database

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"driver-punch-api-server/config"
	"driver-punch-api-server/internal/auth"
	"driver-punch-api-server/internal/logging"
	"driver-punch-api-server/internal/models"
)

func init() {
	auth.HashCost = bcrypt.MinCost
}

// openTestDB connects to MONGO_TEST_URI and returns a fresh database dropped on cleanup.
func openTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
		return nil
	}
	name := fmt.Sprintf("driver_punch_test_%d", time.Now().UnixNano())
	client, db, err := Connect(context.Background(), config.MongoConfig{URI: uri, DBName: name})
	if err != nil {
		t.Skipf("mongo unavailable: %v", err)
		return nil
	}
	require.NoError(t, EnsureIndexes(context.Background(), db))
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}

func TestPunchLedgerConditionalAppend(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewPunchLogRepository(db)

	latest, err := repo.Latest(ctx, "D1")
	require.NoError(t, err)
	assert.Nil(t, latest)

	first := models.PunchLog{DriverID: "D1", Type: models.PunchIn, Method: models.MethodPIN, Timestamp: time.Now().UTC()}
	require.NoError(t, repo.Append(ctx, &first))
	assert.False(t, first.ID.IsZero())

	// Same observed state: a second first-punch collides.
	dup := models.PunchLog{DriverID: "D1", Type: models.PunchIn, Method: models.MethodFace, Timestamp: time.Now().UTC()}
	assert.ErrorIs(t, repo.Append(ctx, &dup), models.ErrConflict)

	// Another driver's first punch is independent.
	other := models.PunchLog{DriverID: "D2", Type: models.PunchIn, Method: models.MethodPIN, Timestamp: time.Now().UTC()}
	require.NoError(t, repo.Append(ctx, &other))

	second := models.PunchLog{DriverID: "D1", Type: models.PunchOut, Method: models.MethodPIN,
		Timestamp: first.Timestamp.Add(time.Minute), PreviousID: first.ID.Hex()}
	require.NoError(t, repo.Append(ctx, &second))

	latest, err = repo.Latest(ctx, "D1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second.ID, latest.ID)

	list, err := repo.List(ctx, models.PunchFilter{DriverID: "D1"}, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, models.PunchOut, list[0].Type)

	found, err := repo.FindByID(ctx, first.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "D1", found.DriverID)

	_, err = repo.FindByID(ctx, "not-an-id")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestReturnFormStatusOnly(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewReturnFormRepository(db)

	form := models.ReturnForm{
		DriverID:    "D1",
		DriverName:  "Ana",
		PunchLogID:  "abc",
		Items:       []models.ReturnItem{{Name: "Crate", Quantity: 3, Condition: models.ConditionGood}},
		TotalItems:  3,
		SubmittedAt: time.Now().UTC().Truncate(time.Millisecond),
		Status:      models.StatusPending,
	}
	require.NoError(t, repo.Insert(ctx, &form))
	require.NoError(t, repo.SetStatus(ctx, form.ID.Hex(), models.StatusApproved))

	got, err := repo.FindByID(ctx, form.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.Equal(t, form.Items, got.Items)
	assert.True(t, form.SubmittedAt.Equal(got.SubmittedAt))

	pending, err := repo.List(ctx, models.FormFilter{Status: models.StatusPending}, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.ErrorIs(t, repo.SetStatus(ctx, "665f1c2e8a1b2c3d4e5f6aff", models.StatusRejected), models.ErrNotFound)
}

func TestDriverRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewDriverRepository(db)

	d := models.Driver{DriverID: "DRV-1", Name: "Ana", PIN: "hash", Active: true, CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.Insert(ctx, &d))
	assert.ErrorIs(t, repo.Insert(ctx, &models.Driver{DriverID: "DRV-1", Name: "Dup"}), models.ErrConflict)

	now := time.Now().UTC()
	require.NoError(t, repo.SetFace(ctx, "DRV-1", []float64{0.1, 0.2}, now))
	inactive := false
	require.NoError(t, repo.Update(ctx, "DRV-1", models.DriverUpdate{Active: &inactive, UpdatedAt: now}))

	got, err := repo.FindByDriverID(ctx, "DRV-1")
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, []float64{0.1, 0.2}, got.FaceDescriptor)

	active, err := repo.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, repo.Delete(ctx, "DRV-1"))
	assert.ErrorIs(t, repo.Delete(ctx, "DRV-1"), models.ErrNotFound)
}

func TestSeedAdminAndRevocation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	seed := config.SeedConfig{AdminEmail: "Admin@Example.com", AdminPassword: "secret123"}

	created, err := SeedAdmin(ctx, users, seed, logging.Discard())
	require.NoError(t, err)
	assert.True(t, created)

	created, err = SeedAdmin(ctx, users, seed, logging.Discard())
	require.NoError(t, err)
	assert.False(t, created)

	admin, err := users.FindByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	revoked := NewRevokedTokenRepository(db)
	require.NoError(t, revoked.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
	ok, err := revoked.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = revoked.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteUsersByDriverID(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	require.NoError(t, users.Insert(ctx, &models.User{Email: "ana@example.com", Role: models.RoleDriver, DriverID: "DRV-1"}))
	require.NoError(t, users.Insert(ctx, &models.User{Email: "ben@example.com", Role: models.RoleDriver, DriverID: "DRV-2"}))

	n, err := users.DeleteByDriverID(ctx, "DRV-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = users.FindByDriverID(ctx, "DRV-1")
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = users.FindByDriverID(ctx, "DRV-2")
	assert.NoError(t, err)
}

func TestSeedAdminNotConfigured(t *testing.T) {
	created, err := SeedAdmin(context.Background(), nil, config.SeedConfig{}, logging.Discard())
	require.NoError(t, err)
	assert.False(t, created)
}
