package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/shop/internal/apperr"
	"github.com/xenking/shop/internal/domain/product"
)

// --- Mock implementations ---

type mockCatalog struct {
	mu      sync.Mutex
	bySKU   map[string]product.Ref
	lookups [][]string
	err     error
}

func newCatalog(refs ...product.Ref) *mockCatalog {
	m := &mockCatalog{bySKU: make(map[string]product.Ref, len(refs))}
	for _, r := range refs {
		m.bySKU[r.SKU] = r
	}
	return m
}

func (m *mockCatalog) FindBySKUs(_ context.Context, skus []string) ([]product.Ref, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lookups = append(m.lookups, skus)
	if m.err != nil {
		return nil, m.err
	}
	var out []product.Ref
	for _, sku := range skus {
		if r, ok := m.bySKU[sku]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockOrderRepo struct {
	mu        sync.Mutex
	nextID    int64
	stored    map[int64]*Order
	createErr error
	updateErr error
	updates   int
}

func newOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{nextID: 1, stored: make(map[int64]*Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	o.ID = m.nextID
	m.nextID++
	cp := *o
	m.stored[o.ID] = &cp
	return nil
}

func (m *mockOrderRepo) Get(_ context.Context, id int64) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.stored[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) UpdateDiscount(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates++
	cp := *o
	m.stored[o.ID] = &cp
	return nil
}

type publishedEvent struct {
	orderID int64
	at      time.Time
}

type mockNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (m *mockNotifier) OrderCreated(_ context.Context, orderID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, publishedEvent{orderID: orderID, at: at})
	return m.err
}

// --- Helpers ---

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func ref(id int64, sku, price string) product.Ref {
	return product.Ref{ID: id, SKU: sku, Price: decimal.RequireFromString(price)}
}

func newTestService(t *testing.T, catalog Catalog, orders Repository, notifier Notifier) *Service {
	t.Helper()
	svc, err := NewService(catalog, orders, notifier, tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	require.NoError(t, err)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

// --- Tests ---

func TestService_Create(t *testing.T) {
	catalog := newCatalog(ref(1, "A", "10.00"), ref(2, "B", "2.99"))
	repo := newOrderRepo()
	notifier := &mockNotifier{}
	svc := newTestService(t, catalog, repo, notifier)

	id, err := svc.Create(context.Background(), []LineRequest{
		{SKU: "A", Quantity: 2},
		{SKU: "B", Quantity: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	stored := repo.stored[id]
	require.NotNil(t, stored)
	assert.True(t, decimal.RequireFromString("28.97").Equal(stored.TotalPrice))
	assert.True(t, stored.Discount.Decimal().IsZero())
	assert.Equal(t, fixedNow, stored.Date)
	require.Len(t, stored.Lines, 2)
	assert.Equal(t, int64(2), stored.Lines[1].ProductID)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, publishedEvent{orderID: 1, at: fixedNow}, notifier.events[0])
}

func TestService_Create_EmptyRequest(t *testing.T) {
	catalog := newCatalog()
	svc := newTestService(t, catalog, newOrderRepo(), &mockNotifier{})

	_, err := svc.Create(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, "Order must contain at least one product", err.Error())
	assert.Empty(t, catalog.lookups, "no lookup before validation")
}

func TestService_Create_SingleDedupedLookup(t *testing.T) {
	catalog := newCatalog(ref(1, "A", "1.00"))
	svc := newTestService(t, catalog, newOrderRepo(), &mockNotifier{})

	_, err := svc.Create(context.Background(), []LineRequest{
		{SKU: "A", Quantity: 1},
		{SKU: "A", Quantity: 4},
	})
	require.NoError(t, err)
	require.Len(t, catalog.lookups, 1)
	assert.Equal(t, []string{"A"}, catalog.lookups[0])
}

func TestService_Create_UnknownSKU(t *testing.T) {
	catalog := newCatalog(ref(1, "A", "1.00"))
	repo := newOrderRepo()
	notifier := &mockNotifier{}
	svc := newTestService(t, catalog, repo, notifier)

	_, err := svc.Create(context.Background(), []LineRequest{
		{SKU: "A", Quantity: 1},
		{SKU: "ghost-sku", Quantity: 1},
		{SKU: "ghost-sku", Quantity: 2},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "Products with SKUs ghost-sku not found.", err.Error())
	assert.Empty(t, repo.stored)
	assert.Empty(t, notifier.events)
}

func TestService_Create_QuantityBounds(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		msg      string
	}{
		{name: "zero", quantity: 0, msg: "Quantity must be at least 1"},
		{name: "negative", quantity: -3, msg: "Quantity must be at least 1"},
		{name: "over limit", quantity: 101, msg: "Quantity cannot exceed 100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newOrderRepo()
			svc := newTestService(t, newCatalog(ref(1, "A", "1.00")), repo, &mockNotifier{})

			_, err := svc.Create(context.Background(), []LineRequest{{SKU: "A", Quantity: tt.quantity}})
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.Equal(t, tt.msg, err.Error())
			assert.Empty(t, repo.stored)
		})
	}
}

func TestService_Create_PersistFailureHidesCause(t *testing.T) {
	repo := newOrderRepo()
	repo.createErr = errors.New("insert order_lines: foreign key violation")
	notifier := &mockNotifier{}
	svc := newTestService(t, newCatalog(ref(1, "A", "1.00")), repo, notifier)

	_, err := svc.Create(context.Background(), []LineRequest{{SKU: "A", Quantity: 1}})
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnexpected, apperr.KindOf(err))
	assert.Equal(t, "An error occurred while creating the order.", err.Error())
	assert.Empty(t, notifier.events, "nothing published without commit")
}

func TestService_Create_PublishFailureIsNotFatal(t *testing.T) {
	notifier := &mockNotifier{err: errors.New("redis: connection refused")}
	svc := newTestService(t, newCatalog(ref(1, "A", "1.00")), newOrderRepo(), notifier)

	id, err := svc.Create(context.Background(), []LineRequest{{SKU: "A", Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Len(t, notifier.events, 1)
}

func TestService_Create_PriceSnapshot(t *testing.T) {
	catalog := newCatalog(ref(1, "A", "10.00"))
	repo := newOrderRepo()
	svc := newTestService(t, catalog, repo, &mockNotifier{})

	id, err := svc.Create(context.Background(), []LineRequest{{SKU: "A", Quantity: 1}})
	require.NoError(t, err)

	catalog.bySKU["A"] = ref(1, "A", "15.00")

	o, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "10.00", o.Lines[0].Price.String())
	assert.True(t, decimal.RequireFromString("10").Equal(o.TotalPrice))
}

// Concurrent orders for the same SKU are not serialized against each other:
// there is no stock reservation, so both succeed.
func TestService_Create_ConcurrentOrdersNotSerialized(t *testing.T) {
	repo := newOrderRepo()
	svc := newTestService(t, newCatalog(ref(1, "A", "1.00")), repo, &mockNotifier{})

	var g errgroup.Group
	for range 8 {
		g.Go(func() error {
			_, err := svc.Create(context.Background(), []LineRequest{{SKU: "A", Quantity: 100}})
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Len(t, repo.stored, 8)
}

func TestService_ApplyDiscount(t *testing.T) {
	catalog := newCatalog(ref(1, "A0101", "10.99"), ref(2, "B0101", "20.99"))
	repo := newOrderRepo()
	svc := newTestService(t, catalog, repo, &mockNotifier{})

	id, err := svc.Create(context.Background(), []LineRequest{
		{SKU: "A0101", Quantity: 2},
		{SKU: "B0101", Quantity: 1},
	})
	require.NoError(t, err)

	o, err := svc.ApplyDiscount(context.Background(), id, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, "38.67", o.TotalPrice.StringFixed(2))

	// Applying the same discount again does not compound.
	o, err = svc.ApplyDiscount(context.Background(), id, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, "38.67", o.TotalPrice.StringFixed(2))
	assert.Equal(t, 2, repo.updates)

	// A new discount replaces the previous one.
	o, err = svc.ApplyDiscount(context.Background(), id, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "42.97", o.TotalPrice.StringFixed(2))
	assert.Equal(t, "42.97", repo.stored[id].TotalPrice.StringFixed(2))
}

func TestService_ApplyDiscount_Errors(t *testing.T) {
	tests := []struct {
		name      string
		id        int64
		percent   decimal.Decimal
		updateErr error
		kind      apperr.Kind
		msg       string
	}{
		{
			name:    "missing order",
			id:      999,
			percent: decimal.NewFromInt(10),
			kind:    apperr.KindNotFound,
			msg:     "Order with ID 999 not found.",
		},
		{
			name:    "over 100",
			id:      1,
			percent: decimal.RequireFromString("100.01"),
			kind:    apperr.KindValidation,
			msg:     "Discount percentage must be between 0 and 100.",
		},
		{
			name:    "negative",
			id:      1,
			percent: decimal.NewFromInt(-1),
			kind:    apperr.KindValidation,
			msg:     "Discount percentage must be between 0 and 100.",
		},
		{
			name:    "beyond stored precision",
			id:      1,
			percent: decimal.RequireFromString("33.333333"),
			kind:    apperr.KindValidation,
			msg:     "Discount percentage cannot have more than 4 decimal places.",
		},
		{
			name:      "persist failure",
			id:        1,
			percent:   decimal.NewFromInt(5),
			updateErr: errors.New("tx closed"),
			kind:      apperr.KindUnexpected,
			msg:       "Failed to apply discount.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newOrderRepo()
			svc := newTestService(t, newCatalog(ref(1, "A", "10.00")), repo, &mockNotifier{})
			_, err := svc.Create(context.Background(), []LineRequest{{SKU: "A", Quantity: 1}})
			require.NoError(t, err)
			repo.updateErr = tt.updateErr

			_, err = svc.ApplyDiscount(context.Background(), tt.id, tt.percent)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			assert.Equal(t, tt.msg, err.Error())
			assert.True(t, repo.stored[1].TotalPrice.Equal(decimal.NewFromInt(10)), "stored order untouched")
		})
	}
}
