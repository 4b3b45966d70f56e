package routes

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"driver-punch-api-server/internal/face"
	"driver-punch-api-server/internal/models"
)

type memUsers struct {
	mu    sync.Mutex
	users []models.User
}

func (m *memUsers) Insert(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return models.ErrConflict
		}
	}
	u.ID = primitive.NewObjectID()
	m.users = append(m.users, *u)
	return nil
}

func (m *memUsers) find(match func(models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return m.find(func(u models.User) bool { return u.Email == email })
}

func (m *memUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	return m.find(func(u models.User) bool { return u.ID.Hex() == id })
}

func (m *memUsers) DeleteByDriverID(_ context.Context, driverID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.users[:0]
	var n int64
	for _, u := range m.users {
		if u.DriverID == driverID {
			n++
			continue
		}
		kept = append(kept, u)
	}
	m.users = kept
	return n, nil
}

func (m *memUsers) FindByDriverID(_ context.Context, driverID string) (*models.User, error) {
	return m.find(func(u models.User) bool { return u.DriverID == driverID })
}

type memRevoker struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func (r *memRevoker) Revoke(_ context.Context, jti string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.revoked == nil {
		r.revoked = map[string]bool{}
	}
	r.revoked[jti] = true
	return nil
}

func (r *memRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revoked[jti], nil
}

type memDriverStore struct {
	mu   sync.Mutex
	byID map[string]models.Driver
}

func (m *memDriverStore) Insert(_ context.Context, d *models.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[d.DriverID]; ok {
		return models.ErrConflict
	}
	d.ID = primitive.NewObjectID()
	m.byID[d.DriverID] = *d
	return nil
}

func (m *memDriverStore) FindByDriverID(_ context.Context, id string) (*models.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &d, nil
}

func (m *memDriverStore) List(_ context.Context, activeOnly bool) ([]models.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Driver
	for _, d := range m.byID {
		if !activeOnly || d.Active {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memDriverStore) Update(_ context.Context, id string, upd models.DriverUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byID[id]
	if !ok {
		return models.ErrNotFound
	}
	if upd.Name != nil {
		d.Name = *upd.Name
	}
	if upd.PIN != nil {
		d.PIN = *upd.PIN
	}
	if upd.Active != nil {
		d.Active = *upd.Active
	}
	m.byID[id] = d
	return nil
}

func (m *memDriverStore) SetFace(_ context.Context, id string, desc []float64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byID[id]
	if !ok {
		return models.ErrNotFound
	}
	d.FaceDescriptor = desc
	d.FaceEnrolledAt = &at
	m.byID[id] = d
	return nil
}

func (m *memDriverStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type memLedger struct {
	mu   sync.Mutex
	rows []models.PunchLog
}

func (l *memLedger) Latest(_ context.Context, driverID string) (*models.PunchLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.rows) - 1; i >= 0; i-- {
		if l.rows[i].DriverID == driverID {
			row := l.rows[i]
			return &row, nil
		}
	}
	return nil, nil
}

func (l *memLedger) Append(_ context.Context, e *models.PunchLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.rows {
		if r.DriverID == e.DriverID && r.PreviousID == e.PreviousID {
			return models.ErrConflict
		}
	}
	e.ID = primitive.NewObjectID()
	l.rows = append(l.rows, *e)
	return nil
}

func (l *memLedger) FindByID(_ context.Context, id string) (*models.PunchLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.rows {
		if r.ID.Hex() == id {
			row := r
			return &row, nil
		}
	}
	return nil, models.ErrNotFound
}

func (l *memLedger) List(_ context.Context, f models.PunchFilter, limit int64) ([]models.PunchLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.PunchLog
	for i := len(l.rows) - 1; i >= 0; i-- {
		if f.DriverID != "" && l.rows[i].DriverID != f.DriverID {
			continue
		}
		out = append(out, l.rows[i])
		if limit > 0 && int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

type memForms struct {
	mu    sync.Mutex
	forms []models.ReturnForm
}

func (m *memForms) Insert(_ context.Context, f *models.ReturnForm) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f.ID = primitive.NewObjectID()
	m.forms = append(m.forms, *f)
	return nil
}

func (m *memForms) FindByID(_ context.Context, id string) (*models.ReturnForm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.forms {
		if f.ID.Hex() == id {
			cp := f
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memForms) List(_ context.Context, filter models.FormFilter, _ int64) ([]models.ReturnForm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ReturnForm
	for i := len(m.forms) - 1; i >= 0; i-- {
		f := m.forms[i]
		if (filter.Status == "" || f.Status == filter.Status) && (filter.DriverID == "" || f.DriverID == filter.DriverID) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memForms) SetStatus(_ context.Context, id string, status models.FormStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.forms {
		if m.forms[i].ID.Hex() == id {
			m.forms[i].Status = status
			return nil
		}
	}
	return models.ErrNotFound
}

// fourDims accepts 4-dimensional descriptors.
type fourDims struct{}

func (fourDims) EnsureLoaded(context.Context) error { return nil }

func (fourDims) Validate(desc []float64) error {
	if len(desc) != 4 {
		return face.ErrInvalidDescriptor
	}
	return nil
}
