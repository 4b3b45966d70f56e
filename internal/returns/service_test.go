package returns

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"driver-punch-api-server/internal/logging"
	"driver-punch-api-server/internal/models"
	"driver-punch-api-server/internal/socket"
)

type memForms struct {
	mu      sync.Mutex
	forms   []models.ReturnForm
	listErr error
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
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.ReturnForm
	for i := len(m.forms) - 1; i >= 0; i-- {
		f := m.forms[i]
		if filter.Status != "" && f.Status != filter.Status {
			continue
		}
		if filter.DriverID != "" && f.DriverID != filter.DriverID {
			continue
		}
		out = append(out, f)
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

type memPunches map[string]models.PunchLog

func (m memPunches) FindByID(_ context.Context, id string) (*models.PunchLog, error) {
	p, ok := m[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &p, nil
}

type memDrivers map[string]models.Driver

func (m memDrivers) Lookup(_ context.Context, id string) (*models.Driver, error) {
	d, ok := m[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &d, nil
}

type countingNotifier struct {
	mu     sync.Mutex
	topics []string
}

func (n *countingNotifier) Notify(topic string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.topics = append(n.topics, topic)
}

type fixture struct {
	svc   *Service
	forms *memForms
	feed  *countingNotifier
}

const (
	punchInID  = "665f1c2e8a1b2c3d4e5f6a01"
	punchOutID = "665f1c2e8a1b2c3d4e5f6a02"
	otherInID  = "665f1c2e8a1b2c3d4e5f6a03"
)

func newFixture() fixture {
	forms := &memForms{}
	feed := &countingNotifier{}
	punches := memPunches{
		punchInID:  {DriverID: "D1", Type: models.PunchIn},
		punchOutID: {DriverID: "D1", Type: models.PunchOut},
		otherInID:  {DriverID: "D2", Type: models.PunchIn},
	}
	drivers := memDrivers{
		"D1": {DriverID: "D1", Name: "Ana", Active: true},
		"D2": {DriverID: "D2", Name: "Bruno", Active: true},
		"D3": {DriverID: "D3", Name: "Carla", Active: false},
	}
	svc := NewService(forms, punches, drivers, feed, logging.Discard())
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC) }
	return fixture{svc: svc, forms: forms, feed: feed}
}

func twoItems() []models.ReturnItem {
	return []models.ReturnItem{
		{Name: "Crate", Quantity: 2, Condition: models.ConditionGood},
		{Name: "Pallet", Quantity: 1, Condition: models.ConditionDamaged},
	}
}

func TestSubmitRecomputesTotalAndStartsPending(t *testing.T) {
	fx := newFixture()

	form, err := fx.svc.Submit(context.Background(), SubmitInput{DriverID: "D1", PunchLogID: punchInID, Items: twoItems()})
	require.NoError(t, err)
	assert.Equal(t, 3, form.TotalItems)
	assert.Equal(t, models.StatusPending, form.Status)
	assert.Equal(t, "Ana", form.DriverName)
	assert.Equal(t, punchInID, form.PunchLogID)
	assert.False(t, form.ID.IsZero())
	assert.Equal(t, []string{socket.TopicReturnForms}, fx.feed.topics)
}

func TestSubmitTrimsNames(t *testing.T) {
	fx := newFixture()
	items := []models.ReturnItem{{Name: "  Crate  ", Quantity: 1, Condition: models.ConditionMissing, Notes: " lost "}}

	form, err := fx.svc.Submit(context.Background(), SubmitInput{DriverID: "D1", PunchLogID: punchInID, Items: items})
	require.NoError(t, err)
	assert.Equal(t, "Crate", form.Items[0].Name)
	assert.Equal(t, "lost", form.Items[0].Notes)
	assert.Equal(t, "  Crate  ", items[0].Name, "caller slice is not mutated")
}

func TestSubmitValidation(t *testing.T) {
	cases := []struct {
		name  string
		items []models.ReturnItem
		field string
	}{
		{"nil items", nil, "items"},
		{"empty items", []models.ReturnItem{}, "items"},
		{"zero quantity", []models.ReturnItem{{Name: "Crate", Quantity: 0, Condition: models.ConditionGood}}, "items[0].quantity"},
		{"blank name", []models.ReturnItem{{Name: "   ", Quantity: 1, Condition: models.ConditionGood}}, "items[0].name"},
		{"bad condition", []models.ReturnItem{
			{Name: "Crate", Quantity: 1, Condition: models.ConditionGood},
			{Name: "Box", Quantity: 1, Condition: "broken"},
		}, "items[1].condition"},
		{"quantity over limit", []models.ReturnItem{
			{Name: "Crate", Quantity: math.MaxInt, Condition: models.ConditionGood},
			{Name: "Box", Quantity: 2, Condition: models.ConditionGood},
		}, "items[0].quantity"},
		{"too many items", manyItems(501), "items"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newFixture()
			_, err := fx.svc.Submit(context.Background(), SubmitInput{DriverID: "D1", PunchLogID: punchInID, Items: tc.items})
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Contains(t, verr.Fields, tc.field)
			assert.Empty(t, fx.forms.forms)
			assert.Empty(t, fx.feed.topics)
		})
	}
}

func manyItems(n int) []models.ReturnItem {
	items := make([]models.ReturnItem, n)
	for i := range items {
		items[i] = models.ReturnItem{Name: "Crate", Quantity: 1, Condition: models.ConditionGood}
	}
	return items
}

func TestSubmitAtLimits(t *testing.T) {
	fx := newFixture()
	items := manyItems(500)
	for i := range items {
		items[i].Quantity = 100000
	}

	form, err := fx.svc.Submit(context.Background(), SubmitInput{DriverID: "D1", PunchLogID: punchInID, Items: items})
	require.NoError(t, err)
	assert.Equal(t, 500*100000, form.TotalItems)
}

func TestSubmitPunchReference(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	_, err := fx.svc.Submit(ctx, SubmitInput{DriverID: "D1", PunchLogID: "665f1c2e8a1b2c3d4e5f6aff", Items: twoItems()})
	assert.ErrorIs(t, err, ErrPunchNotFound)

	_, err = fx.svc.Submit(ctx, SubmitInput{DriverID: "D1", PunchLogID: punchOutID, Items: twoItems()})
	assert.ErrorIs(t, err, ErrPunchNotIn)

	_, err = fx.svc.Submit(ctx, SubmitInput{DriverID: "D1", PunchLogID: otherInID, Items: twoItems()})
	assert.ErrorIs(t, err, ErrPunchNotOwned)

	_, err = fx.svc.Submit(ctx, SubmitInput{DriverID: "D9", PunchLogID: punchInID, Items: twoItems()})
	assert.ErrorIs(t, err, ErrDriverNotFound)
}

func TestSubmitRejectsInactiveDriver(t *testing.T) {
	fx := newFixture()

	_, err := fx.svc.Submit(context.Background(), SubmitInput{DriverID: "D3", PunchLogID: punchInID, Items: twoItems()})
	assert.ErrorIs(t, err, ErrDriverInactive)
	assert.Empty(t, fx.forms.forms)
	assert.Empty(t, fx.feed.topics)
}

func TestSubmitDoesNotDeduplicate(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := fx.svc.Submit(ctx, SubmitInput{DriverID: "D1", PunchLogID: punchInID, Items: twoItems()})
		require.NoError(t, err)
	}
	assert.Len(t, fx.forms.forms, 2)
}

func TestDecideAndRedecide(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	form, err := fx.svc.Submit(ctx, SubmitInput{DriverID: "D1", PunchLogID: punchInID, Items: twoItems()})
	require.NoError(t, err)
	id := form.ID.Hex()

	_, err = fx.svc.Decide(ctx, id, models.StatusPending)
	assert.ErrorIs(t, err, ErrInvalidDecision)

	decided, err := fx.svc.Decide(ctx, id, models.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, decided.Status)

	redecided, err := fx.svc.Decide(ctx, id, models.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, redecided.Status)

	stored, err := fx.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, stored.Status)
	assert.Equal(t, form.Items, stored.Items)
	assert.Equal(t, form.TotalItems, stored.TotalItems)
	assert.Equal(t, form.SubmittedAt, stored.SubmittedAt)

	_, err = fx.svc.Decide(ctx, "665f1c2e8a1b2c3d4e5f6aff", models.StatusApproved)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListFiltersAndDegrades(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	first, err := fx.svc.Submit(ctx, SubmitInput{DriverID: "D1", PunchLogID: punchInID, Items: twoItems()})
	require.NoError(t, err)
	_, err = fx.svc.Submit(ctx, SubmitInput{DriverID: "D2", PunchLogID: otherInID, Items: twoItems()})
	require.NoError(t, err)
	_, err = fx.svc.Decide(ctx, first.ID.Hex(), models.StatusApproved)
	require.NoError(t, err)

	pending := fx.svc.List(ctx, models.FormFilter{Status: models.StatusPending}, 50)
	require.Len(t, pending, 1)
	assert.Equal(t, "D2", pending[0].DriverID)

	own := fx.svc.List(ctx, models.FormFilter{DriverID: "D1"}, 50)
	require.Len(t, own, 1)
	assert.Equal(t, models.StatusApproved, own[0].Status)

	fx.forms.listErr = errors.New("server selection timeout")
	list := fx.svc.List(ctx, models.FormFilter{}, 50)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestGetNotFound(t *testing.T) {
	fx := newFixture()
	_, err := fx.svc.Get(context.Background(), "665f1c2e8a1b2c3d4e5f6aff")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTotal(t *testing.T) {
	assert.Equal(t, 0, Total(nil))
	assert.Equal(t, 10, Total([]models.ReturnItem{{Quantity: 3}, {Quantity: 7}}))
}
