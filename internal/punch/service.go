package punch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"driver-punch-api-server/internal/auth"
	"driver-punch-api-server/internal/face"
	"driver-punch-api-server/internal/metrics"
	"driver-punch-api-server/internal/models"
	"driver-punch-api-server/internal/socket"
)

var (
	ErrDriverNotFound  = errors.New("driver not found")
	ErrDriverInactive  = errors.New("driver is inactive")
	ErrInvalidPIN      = errors.New("incorrect PIN")
	ErrFaceMismatch    = errors.New("face does not match")
	ErrNoFaceDetected  = fmt.Errorf("%w: no face detected", ErrFaceMismatch)
	ErrFaceNotEnrolled = errors.New("no face enrolled for this driver")
	ErrFaceOutdated    = errors.New("enrolled face does not fit the current face model, re-enroll the face")
	ErrConcurrentPunch = errors.New("another punch was recorded for this driver at the same time, retry")
)

// DriverLookup resolves an external driver id to its profile.
type DriverLookup interface {
	Lookup(ctx context.Context, driverID string) (*models.Driver, error)
}

// Ledger is the append-only punch log.
type Ledger interface {
	Latest(ctx context.Context, driverID string) (*models.PunchLog, error)
	Append(ctx context.Context, entry *models.PunchLog) error
	List(ctx context.Context, filter models.PunchFilter, limit int64) ([]models.PunchLog, error)
}

// FaceModel is the shared face model handle.
type FaceModel interface {
	EnsureLoaded(ctx context.Context) error
	Validate(descriptor []float64) error
}

// Notifier refreshes live feeds after a write.
type Notifier interface {
	Notify(topic string)
}

// Anchorer copies punches to an external ledger network.
type Anchorer interface {
	AnchorPunch(ctx context.Context, entry models.PunchLog) error
}

// State is the derived punch state of a driver.
type State struct {
	DriverID string           `json:"driverId"`
	Next     models.Direction `json:"next"`
	Last     *models.PunchLog `json:"last"`
}

// Result of a successful punch.
type Result struct {
	Punch models.PunchLog  `json:"punch"`
	Next  models.Direction `json:"next"`
	// ReturnFormRequired is set after a punch-in: the caller continues to the return form.
	ReturnFormRequired bool     `json:"returnFormRequired"`
	FaceDistance       *float64 `json:"faceDistance,omitempty"`
}

type Service struct {
	drivers DriverLookup
	ledger  Ledger
	model   FaceModel
	feed    Notifier
	anchor  Anchorer
	log     *slog.Logger
	now     func() time.Time

	anchorTimeout time.Duration
}

func NewService(drivers DriverLookup, ledger Ledger, model FaceModel, feed Notifier, log *slog.Logger) *Service {
	return &Service{
		drivers:       drivers,
		ledger:        ledger,
		model:         model,
		feed:          feed,
		log:           log,
		now:           time.Now,
		anchorTimeout: 30 * time.Second,
	}
}

// WithAnchor enables anchoring of every appended punch.
func (s *Service) WithAnchor(a Anchorer) *Service {
	s.anchor = a
	return s
}

func (s *Service) driver(ctx context.Context, driverID string) (*models.Driver, error) {
	d, err := s.drivers.Lookup(ctx, driverID)
	if err != nil || d == nil {
		return nil, ErrDriverNotFound
	}
	if !d.Active {
		return nil, ErrDriverInactive
	}
	return d, nil
}

// latest reads the newest ledger entry. Read failures degrade to "no history"; the
// ledger's uniqueness on previousId still refuses an append made from a stale view.
func (s *Service) latest(ctx context.Context, driverID string) *models.PunchLog {
	last, err := s.ledger.Latest(ctx, driverID)
	if err != nil {
		s.log.Warn("latest punch lookup failed", "driverId", driverID, "error", err)
		return nil
	}
	return last
}

// State returns the next permitted action for the driver.
func (s *Service) State(ctx context.Context, driverID string) (*State, error) {
	if _, err := s.driver(ctx, driverID); err != nil {
		return nil, err
	}
	last := s.latest(ctx, driverID)
	return &State{DriverID: driverID, Next: NextAction(last), Last: last}, nil
}

// PunchWithPIN authorizes with the driver's PIN. Attempts are not limited.
func (s *Service) PunchWithPIN(ctx context.Context, driverID, pin string, loc *models.Location) (*Result, error) {
	d, err := s.driver(ctx, driverID)
	if err != nil {
		s.reject(models.MethodPIN, err)
		return nil, err
	}
	if pin == "" || !auth.CheckPasswordHash(pin, d.PIN) {
		s.reject(models.MethodPIN, ErrInvalidPIN)
		return nil, ErrInvalidPIN
	}
	return s.record(ctx, d, models.MethodPIN, loc, nil)
}

// PunchWithFace authorizes with a live descriptor. An empty descriptor means the
// capture found no face and is a plain non-match.
func (s *Service) PunchWithFace(ctx context.Context, driverID string, descriptor []float64, loc *models.Location) (*Result, error) {
	d, err := s.driver(ctx, driverID)
	if err != nil {
		s.reject(models.MethodFace, err)
		return nil, err
	}
	if err := s.model.EnsureLoaded(ctx); err != nil {
		s.log.Error("face model load failed", "error", err)
		s.reject(models.MethodFace, face.ErrModelUnavailable)
		return nil, face.ErrModelUnavailable
	}
	if !d.FaceEnrolled() {
		s.reject(models.MethodFace, ErrFaceNotEnrolled)
		return nil, ErrFaceNotEnrolled
	}
	if len(descriptor) == 0 {
		s.reject(models.MethodFace, ErrNoFaceDetected)
		return nil, ErrNoFaceDetected
	}
	if err := s.model.Validate(descriptor); err != nil {
		s.reject(models.MethodFace, err)
		return nil, err
	}

	res := face.Match(descriptor, d.FaceDescriptor)
	if !res.Compared {
		// The stored descriptor was enrolled under a model with another length.
		s.reject(models.MethodFace, ErrFaceOutdated)
		s.log.Warn("enrolled face descriptor is outdated", "driverId", driverID,
			"stored", len(d.FaceDescriptor), "live", len(descriptor))
		return nil, ErrFaceOutdated
	}
	metrics.FaceDistance.Observe(res.Distance)
	if !res.Matched {
		s.reject(models.MethodFace, ErrFaceMismatch)
		s.log.Info("face punch rejected", "driverId", driverID, "distance", res.Distance)
		return nil, fmt.Errorf("%w (distance %.3f)", ErrFaceMismatch, res.Distance)
	}
	dist := res.Distance
	return s.record(ctx, d, models.MethodFace, loc, &dist)
}

func (s *Service) record(ctx context.Context, d *models.Driver, method models.PunchMethod, loc *models.Location, dist *float64) (*Result, error) {
	last := s.latest(ctx, d.DriverID)
	entry := models.PunchLog{
		DriverID:   d.DriverID,
		DriverName: d.Name,
		Type:       NextAction(last),
		Timestamp:  s.now().UTC(),
		Method:     method,
		Location:   loc,
	}
	if last != nil {
		entry.PreviousID = last.ID.Hex()
	}

	if err := s.ledger.Append(ctx, &entry); err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.reject(method, ErrConcurrentPunch)
			return nil, ErrConcurrentPunch
		}
		return nil, fmt.Errorf("append punch: %w", err)
	}

	metrics.Punches.WithLabelValues(string(entry.Type), string(method)).Inc()
	s.log.Info("punch recorded", "driverId", d.DriverID, "type", entry.Type, "method", method, "punchId", entry.ID.Hex())
	s.feed.Notify(socket.TopicPunchLogs)
	if s.anchor != nil {
		go s.anchorPunch(entry)
	}

	return &Result{
		Punch:              entry,
		Next:               NextAction(&entry),
		ReturnFormRequired: entry.Type == models.PunchIn,
		FaceDistance:       dist,
	}, nil
}

func (s *Service) anchorPunch(entry models.PunchLog) {
	ctx, cancel := context.WithTimeout(context.Background(), s.anchorTimeout)
	defer cancel()
	if err := s.anchor.AnchorPunch(ctx, entry); err != nil {
		metrics.AnchorFailures.Inc()
		s.log.Error("punch anchoring failed", "punchId", entry.ID.Hex(), "error", err)
	}
}

func (s *Service) reject(method models.PunchMethod, reason error) {
	label := "other"
	switch {
	case errors.Is(reason, ErrInvalidPIN):
		label = "invalid_pin"
	case errors.Is(reason, ErrNoFaceDetected):
		label = "no_face"
	case errors.Is(reason, ErrFaceMismatch):
		label = "face_mismatch"
	case errors.Is(reason, ErrFaceNotEnrolled):
		label = "not_enrolled"
	case errors.Is(reason, ErrFaceOutdated):
		label = "outdated_face"
	case errors.Is(reason, face.ErrModelUnavailable):
		label = "model_unavailable"
	case errors.Is(reason, ErrDriverNotFound), errors.Is(reason, ErrDriverInactive):
		label = "driver"
	case errors.Is(reason, ErrConcurrentPunch):
		label = "concurrent"
	}
	metrics.PunchRejections.WithLabelValues(string(method), label).Inc()
}

// History lists ledger entries, newest first. Read failures yield an empty list.
func (s *Service) History(ctx context.Context, filter models.PunchFilter, limit int64) []models.PunchLog {
	logs, err := s.ledger.List(ctx, filter, limit)
	if err != nil {
		s.log.Error("punch history query failed", "error", err)
		return []models.PunchLog{}
	}
	if logs == nil {
		logs = []models.PunchLog{}
	}
	return logs
}
