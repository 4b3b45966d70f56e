// Package returns implements the return-form lifecycle: submission tied to a punch-in
// and the admin approval decision.
package returns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"driver-punch-api-server/internal/metrics"
	"driver-punch-api-server/internal/models"
	"driver-punch-api-server/internal/socket"
)

var (
	ErrNotFound        = fmt.Errorf("return form %w", models.ErrNotFound)
	ErrDriverNotFound  = errors.New("driver not found")
	ErrDriverInactive  = errors.New("driver is inactive")
	ErrPunchNotFound   = errors.New("referenced punch not found")
	ErrPunchNotOwned   = errors.New("referenced punch belongs to another driver")
	ErrPunchNotIn      = errors.New("return forms can only follow a punch-in")
	ErrInvalidDecision = errors.New("status must be approved or rejected")
)

// Store persists return forms.
type Store interface {
	Insert(ctx context.Context, f *models.ReturnForm) error
	FindByID(ctx context.Context, id string) (*models.ReturnForm, error)
	List(ctx context.Context, filter models.FormFilter, limit int64) ([]models.ReturnForm, error)
	SetStatus(ctx context.Context, id string, status models.FormStatus) error
}

// PunchLookup resolves the punch a form refers to.
type PunchLookup interface {
	FindByID(ctx context.Context, id string) (*models.PunchLog, error)
}

type DriverLookup interface {
	Lookup(ctx context.Context, driverID string) (*models.Driver, error)
}

type Notifier interface {
	Notify(family string)
}

type Service struct {
	store   Store
	punches PunchLookup
	drivers DriverLookup
	feed    Notifier
	log     *slog.Logger
	now     func() time.Time
}

func NewService(store Store, punches PunchLookup, drivers DriverLookup, feed Notifier, log *slog.Logger) *Service {
	return &Service{store: store, punches: punches, drivers: drivers, feed: feed, log: log, now: time.Now}
}

type SubmitInput struct {
	DriverID   string
	PunchLogID string
	Items      []models.ReturnItem
}

// Submit records a pending form. The total is always recomputed from the items.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*models.ReturnForm, error) {
	items := normalizeItems(in.Items)
	if err := validateItems(items); err != nil {
		return nil, err
	}

	d, err := s.drivers.Lookup(ctx, in.DriverID)
	if err != nil {
		return nil, ErrDriverNotFound
	}
	if !d.Active {
		return nil, ErrDriverInactive
	}

	p, err := s.punches.FindByID(ctx, in.PunchLogID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return nil, ErrPunchNotFound
	case err != nil:
		return nil, fmt.Errorf("load punch: %w", err)
	case p.DriverID != d.DriverID:
		return nil, ErrPunchNotOwned
	case p.Type != models.PunchIn:
		return nil, ErrPunchNotIn
	}

	form := models.ReturnForm{
		DriverID:    d.DriverID,
		DriverName:  d.Name,
		PunchLogID:  in.PunchLogID,
		Items:       items,
		TotalItems:  Total(items),
		SubmittedAt: s.now().UTC(),
		Status:      models.StatusPending,
	}
	if err := s.store.Insert(ctx, &form); err != nil {
		return nil, fmt.Errorf("insert return form: %w", err)
	}

	metrics.ReturnForms.WithLabelValues(string(models.StatusPending)).Inc()
	s.log.Info("return form submitted",
		"formId", form.ID.Hex(), "driverId", form.DriverID, "punchLogId", form.PunchLogID, "totalItems", form.TotalItems)
	s.feed.Notify(socket.TopicReturnForms)
	return &form, nil
}

// Decide sets the form status. Re-deciding an already-decided form overwrites the status.
func (s *Service) Decide(ctx context.Context, id string, status models.FormStatus) (*models.ReturnForm, error) {
	if !status.Decided() {
		return nil, ErrInvalidDecision
	}
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load return form: %w", err)
	}
	if err := s.store.SetStatus(ctx, id, status); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update return form: %w", err)
	}

	if current.Status.Decided() {
		s.log.Warn("return form re-decided", "formId", id, "from", current.Status, "to", status)
	} else {
		s.log.Info("return form decided", "formId", id, "status", status)
	}
	metrics.ReturnForms.WithLabelValues(string(status)).Inc()
	s.feed.Notify(socket.TopicReturnForms)

	current.Status = status
	return current, nil
}

// List returns forms newest first; a failed read yields an empty list.
func (s *Service) List(ctx context.Context, filter models.FormFilter, limit int64) []models.ReturnForm {
	forms, err := s.store.List(ctx, filter, limit)
	if err != nil {
		s.log.Error("return form list failed", "status", filter.Status, "driverId", filter.DriverID, "error", err)
		return []models.ReturnForm{}
	}
	if forms == nil {
		forms = []models.ReturnForm{}
	}
	return forms
}

func (s *Service) Get(ctx context.Context, id string) (*models.ReturnForm, error) {
	f, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load return form: %w", err)
	}
	return f, nil
}
