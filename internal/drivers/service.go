// Package drivers is the admin-owned driver directory.
package drivers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"driver-punch-api-server/internal/auth"
	"driver-punch-api-server/internal/models"
)

var (
	ErrNotFound       = fmt.Errorf("driver %w", models.ErrNotFound)
	ErrDuplicateID    = errors.New("a driver with this id already exists")
	ErrInvalidPIN     = errors.New("PIN must be 4 to 8 digits")
	ErrNameRequired   = errors.New("name is required")
	ErrEmptyFace      = errors.New("face descriptor is required for enrollment")
	ErrDriverInactive = errors.New("driver is inactive")
)

var pinPattern = regexp.MustCompile(`^[0-9]{4,8}$`)

// Store persists drivers.
type Store interface {
	Insert(ctx context.Context, d *models.Driver) error
	FindByDriverID(ctx context.Context, driverID string) (*models.Driver, error)
	List(ctx context.Context, activeOnly bool) ([]models.Driver, error)
	Update(ctx context.Context, driverID string, upd models.DriverUpdate) error
	SetFace(ctx context.Context, driverID string, descriptor []float64, at time.Time) error
	Delete(ctx context.Context, driverID string) error
}

// FaceModel validates enrollment descriptors.
type FaceModel interface {
	EnsureLoaded(ctx context.Context) error
	Validate(descriptor []float64) error
}

// Accounts removes the user accounts linked to a driver.
type Accounts interface {
	DeleteByDriverID(ctx context.Context, driverID string) (int64, error)
}

type Service struct {
	store    Store
	model    FaceModel
	accounts Accounts
	log      *slog.Logger
	now      func() time.Time
}

func NewService(store Store, model FaceModel, log *slog.Logger) *Service {
	return &Service{store: store, model: model, log: log, now: time.Now}
}

// WithAccounts makes Delete also remove the driver's sign-in account.
func (s *Service) WithAccounts(a Accounts) *Service {
	s.accounts = a
	return s
}

type CreateInput struct {
	DriverID string
	Name     string
	Email    string
	Phone    string
	PIN      string
}

// NewDriverID generates an external driver id.
func NewDriverID() string {
	return fmt.Sprintf("DRV-%s", strings.ToUpper(uuid.New().String()[:8]))
}

// Create adds an active driver with a hashed PIN.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Driver, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if !pinPattern.MatchString(in.PIN) {
		return nil, ErrInvalidPIN
	}
	hash, err := auth.HashPassword(in.PIN)
	if err != nil {
		return nil, fmt.Errorf("hash pin: %w", err)
	}

	driverID := strings.TrimSpace(in.DriverID)
	if driverID == "" {
		driverID = NewDriverID()
	}
	now := s.now().UTC()
	d := models.Driver{
		DriverID:  driverID,
		Name:      name,
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:     strings.TrimSpace(in.Phone),
		PIN:       hash,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Insert(ctx, &d); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, ErrDuplicateID
		}
		return nil, fmt.Errorf("create driver: %w", err)
	}
	s.log.Info("driver created", "driverId", d.DriverID)
	return &d, nil
}

// Lookup resolves the external id. A failed read is logged and reported as not found.
func (s *Service) Lookup(ctx context.Context, driverID string) (*models.Driver, error) {
	d, err := s.store.FindByDriverID(ctx, driverID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.log.Error("driver lookup failed", "driverId", driverID, "error", err)
		}
		return nil, ErrNotFound
	}
	return d, nil
}

// List returns drivers ordered by name; a failed read yields an empty list.
func (s *Service) List(ctx context.Context, activeOnly bool) []models.Driver {
	list, err := s.store.List(ctx, activeOnly)
	if err != nil {
		s.log.Error("driver list failed", "error", err)
		return []models.Driver{}
	}
	if list == nil {
		list = []models.Driver{}
	}
	return list
}

type UpdateInput struct {
	Name  *string
	Email *string
	Phone *string
	PIN   *string
}

// Update changes contact details and, optionally, the PIN.
func (s *Service) Update(ctx context.Context, driverID string, in UpdateInput) (*models.Driver, error) {
	upd := models.DriverUpdate{UpdatedAt: s.now().UTC()}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		upd.Name = &name
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		upd.Email = &email
	}
	if in.Phone != nil {
		phone := strings.TrimSpace(*in.Phone)
		upd.Phone = &phone
	}
	if in.PIN != nil {
		if !pinPattern.MatchString(*in.PIN) {
			return nil, ErrInvalidPIN
		}
		hash, err := auth.HashPassword(*in.PIN)
		if err != nil {
			return nil, fmt.Errorf("hash pin: %w", err)
		}
		upd.PIN = &hash
	}
	if err := s.store.Update(ctx, driverID, upd); err != nil {
		return nil, s.writeErr("update", err)
	}
	return s.Lookup(ctx, driverID)
}

// Deactivate keeps the record and its history but stops the driver from punching.
func (s *Service) Deactivate(ctx context.Context, driverID string) error {
	inactive := false
	err := s.store.Update(ctx, driverID, models.DriverUpdate{Active: &inactive, UpdatedAt: s.now().UTC()})
	if err != nil {
		return s.writeErr("deactivate", err)
	}
	s.log.Info("driver deactivated", "driverId", driverID)
	return nil
}

// Delete removes the record and its linked account permanently. Punch logs and forms
// are kept. A driver id re-created later starts without an account.
func (s *Service) Delete(ctx context.Context, driverID string) error {
	if err := s.store.Delete(ctx, driverID); err != nil {
		return s.writeErr("delete", err)
	}
	var removed int64
	if s.accounts != nil {
		n, err := s.accounts.DeleteByDriverID(ctx, driverID)
		if err != nil {
			return fmt.Errorf("delete account of driver %s: %w", driverID, err)
		}
		removed = n
	}
	s.log.Warn("driver deleted", "driverId", driverID, "accountsRemoved", removed)
	return nil
}

// EnrollFace stores the captured descriptor without comparing it to anything.
func (s *Service) EnrollFace(ctx context.Context, driverID string, descriptor []float64) (*models.Driver, error) {
	if len(descriptor) == 0 {
		return nil, ErrEmptyFace
	}
	if err := s.model.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	if err := s.model.Validate(descriptor); err != nil {
		return nil, err
	}
	d, err := s.Lookup(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if !d.Active {
		return nil, ErrDriverInactive
	}
	at := s.now().UTC()
	if err := s.store.SetFace(ctx, driverID, descriptor, at); err != nil {
		return nil, s.writeErr("enroll face", err)
	}
	d.FaceDescriptor = descriptor
	d.FaceEnrolledAt = &at
	s.log.Info("face enrolled", "driverId", driverID)
	return d, nil
}

func (s *Service) writeErr(op string, err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s driver: %w", op, err)
}
