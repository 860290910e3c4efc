package catalog

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/catalog-browser/internal/domain/product"
)

// Repository is the store's view of the catalog.
type Repository interface {
	// GetProducts returns every product. An empty slice is a valid result.
	GetProducts(ctx context.Context) ([]product.Product, error)
	// GetProductByID returns a single product.
	GetProductByID(ctx context.Context, id int64) (product.Product, error)
}

var _ Repository = (*ServiceRepository)(nil)

// ServiceRepository implements Repository on top of a product.Service.
//
// Failures from the service are returned unchanged so their message reaches
// the store verbatim. A failed list call is never turned into an empty
// success.
type ServiceRepository struct {
	svc    product.Service
	lg     *zap.Logger
	tracer trace.Tracer
}

// NewRepository returns a ServiceRepository delegating to svc.
func NewRepository(svc product.Service, lg *zap.Logger, tp trace.TracerProvider) *ServiceRepository {
	return &ServiceRepository{
		svc:    svc,
		lg:     lg,
		tracer: tp.Tracer("github.com/xenking/catalog-browser/internal/domain/catalog"),
	}
}

// GetProducts fetches the full product list. Pagination metadata is dropped.
func (r *ServiceRepository) GetProducts(ctx context.Context) ([]product.Product, error) {
	ctx, span := r.tracer.Start(ctx, "catalog.GetProducts")
	defer span.End()

	r.lg.Debug("Fetching products")

	coll, err := r.svc.FetchAll(ctx)
	if err != nil {
		r.lg.Warn("Fetch products failed", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch products")
		return nil, err
	}

	var products []product.Product
	if coll != nil {
		products = coll.Products
	}
	if products == nil {
		products = []product.Product{}
	}

	span.SetAttributes(attribute.Int("catalog.products", len(products)))
	r.lg.Debug("Fetched products", zap.Int("count", len(products)))
	return products, nil
}

// GetProductByID fetches one product.
func (r *ServiceRepository) GetProductByID(ctx context.Context, id int64) (product.Product, error) {
	ctx, span := r.tracer.Start(ctx, "catalog.GetProductByID",
		trace.WithAttributes(attribute.Int64("catalog.product_id", id)),
	)
	defer span.End()

	p, err := r.svc.FetchByID(ctx, id)
	if err != nil {
		r.lg.Warn("Fetch product failed", zap.Int64("id", id), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch product")
		return product.Product{}, err
	}
	if p == nil {
		return product.Product{}, product.ErrNotFound
	}

	r.lg.Debug("Fetched product", zap.Int64("id", id))
	return *p, nil
}
