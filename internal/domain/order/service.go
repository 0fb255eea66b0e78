package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/shop/internal/apperr"
	"github.com/xenking/shop/internal/domain/product"
)

const instrumentationName = "github.com/xenking/shop/internal/domain/order"

// Catalog resolves SKUs to their current catalog entries.
type Catalog interface {
	FindBySKUs(ctx context.Context, skus []string) ([]product.Ref, error)
}

// Notifier announces newly created orders to external subscribers.
type Notifier interface {
	OrderCreated(ctx context.Context, orderID int64, at time.Time) error
}

// LineRequest is one requested (SKU, quantity) pair.
type LineRequest struct {
	SKU      string
	Quantity int
}

// Service encapsulates order placement and discounting.
type Service struct {
	catalog  Catalog
	orders   Repository
	notifier Notifier
	now      func() time.Time

	tracer         trace.Tracer
	created        metric.Int64Counter
	discounted     metric.Int64Counter
	notifyFailures metric.Int64Counter
}

// NewService creates an order Service with the required dependencies.
func NewService(
	catalog Catalog,
	orders Repository,
	notifier Notifier,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (*Service, error) {
	meter := mp.Meter(instrumentationName)

	created, err := meter.Int64Counter("shop.orders.created",
		metric.WithDescription("Orders persisted"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders created counter")
	}
	discounted, err := meter.Int64Counter("shop.orders.discounts_applied",
		metric.WithDescription("Discounts applied to orders"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "discounts counter")
	}
	notifyFailures, err := meter.Int64Counter("shop.orders.notify_failures",
		metric.WithDescription("Order-created notifications that could not be published"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "notify failures counter")
	}

	return &Service{
		catalog:        catalog,
		orders:         orders,
		notifier:       notifier,
		now:            time.Now,
		tracer:         tp.Tracer(instrumentationName),
		created:        created,
		discounted:     discounted,
		notifyFailures: notifyFailures,
	}, nil
}

// Create prices the requested lines against the current catalog, persists
// the order and announces it. It returns the new order id.
func (s *Service) Create(ctx context.Context, req []LineRequest) (_ int64, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Create",
		trace.WithAttributes(attribute.Int("order.lines", len(req))),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	if len(req) == 0 {
		return 0, apperr.Validation("Order must contain at least one product")
	}

	skus := uniqueSKUs(req)
	refs, err := s.catalog.FindBySKUs(ctx, skus)
	if err != nil {
		return 0, apperr.Unexpected("An error occurred while creating the order.", errors.Wrap(err, "find products"))
	}
	if missing := product.MissingSKUs(skus, refs); len(missing) > 0 {
		return 0, apperr.NotFoundf("Products with SKUs %s not found.", strings.Join(missing, ", "))
	}

	bySKU := make(map[string]product.Ref, len(refs))
	for _, r := range refs {
		bySKU[r.SKU] = r
	}

	lines := make([]Line, 0, len(req))
	for _, lr := range req {
		ref := bySKU[lr.SKU]
		line, err := NewLine(lr.SKU, lr.Quantity, ref.Price, ref.ID)
		if err != nil {
			return 0, err
		}
		lines = append(lines, line)
	}

	o, err := New(s.now(), lines)
	if err != nil {
		return 0, err
	}

	lg := zctx.From(ctx)
	if err := s.orders.Create(ctx, o); err != nil {
		lg.Error("Order creation rolled back", zap.Error(err))
		return 0, apperr.Unexpected("An error occurred while creating the order.", err)
	}

	s.created.Add(ctx, 1)
	span.SetAttributes(attribute.Int64("order.id", o.ID))
	lg.Info("Order created",
		zap.Int64("order_id", o.ID),
		zap.String("total", o.TotalPrice.StringFixed(2)),
	)

	if err := s.notifier.OrderCreated(ctx, o.ID, o.Date); err != nil {
		s.notifyFailures.Add(ctx, 1)
		lg.Warn("Failed to publish order notification",
			zap.Int64("order_id", o.ID),
			zap.Error(err),
		)
	}

	return o.ID, nil
}

// ApplyDiscount replaces the discount of an existing order and returns the
// updated order.
func (s *Service) ApplyDiscount(ctx context.Context, id int64, percent decimal.Decimal) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.ApplyDiscount",
		trace.WithAttributes(
			attribute.Int64("order.id", id),
			attribute.String("order.discount", percent.String()),
		),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	p, err := NewDiscountPercentage(percent)
	if err != nil {
		return nil, err
	}
	o.ApplyDiscount(p)

	if err := s.orders.UpdateDiscount(ctx, o); err != nil {
		zctx.From(ctx).Error("Failed to persist discount",
			zap.Int64("order_id", id),
			zap.Error(err),
		)
		return nil, apperr.Unexpected("Failed to apply discount.", err)
	}

	s.discounted.Add(ctx, 1)
	return o, nil
}

// Get returns a persisted order with its lines.
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.Get",
		trace.WithAttributes(attribute.Int64("order.id", id)),
	)
	defer span.End()

	return s.load(ctx, id)
}

func (s *Service) load(ctx context.Context, id int64) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFoundf("Order with ID %d not found.", id)
		}
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}

func uniqueSKUs(req []LineRequest) []string {
	seen := make(map[string]struct{}, len(req))
	skus := make([]string, 0, len(req))
	for _, lr := range req {
		if _, ok := seen[lr.SKU]; ok {
			continue
		}
		seen[lr.SKU] = struct{}{}
		skus = append(skus, lr.SKU)
	}
	return skus
}
