package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mercato-hq/mercato/internal/backend"
)

const (
	tableBusinesses = "businesses"
	tableProducts   = "products"
)

// Repository reads and writes directory records.
type Repository interface {
	ListBusinesses(ctx context.Context, filter ListFilter) ([]Business, error)
	GetBusiness(ctx context.Context, id uuid.UUID) (Business, error)
	ListProducts(ctx context.Context, businessID uuid.UUID, activeOnly bool) ([]Product, error)
	GetProduct(ctx context.Context, businessID, id uuid.UUID) (Product, error)
	CreateProduct(ctx context.Context, p Product) (Product, error)
	SaveProduct(ctx context.Context, p Product) error
	PatchProduct(ctx context.Context, businessID, id uuid.UUID, patch backend.Record) error
	DeleteProduct(ctx context.Context, businessID, id uuid.UUID) error
}

type repository struct {
	client backend.Client
}

// NewRepository builds a Repository over the backend client.
func NewRepository(client backend.Client) Repository {
	return &repository{client: client}
}

func (r *repository) ListBusinesses(ctx context.Context, filter ListFilter) ([]Business, error) {
	filters := []backend.Filter{backend.Eq("active", true)}
	if filter.Category != "" {
		filters = append(filters, backend.Eq("category", filter.Category))
	}
	if filter.City != "" {
		filters = append(filters, backend.Eq("city", filter.City))
	}
	recs, err := r.client.Select(ctx, backend.Query{
		Table:   tableBusinesses,
		Filters: filters,
		Order:   []backend.Order{{Column: "name"}},
		Limit:   filter.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: list businesses: %w", err)
	}
	out := []Business{}
	if err := backend.Decode(recs, &out); err != nil {
		return nil, fmt.Errorf("catalog: decode businesses: %w", err)
	}
	return out, nil
}

func (r *repository) GetBusiness(ctx context.Context, id uuid.UUID) (Business, error) {
	recs, err := r.client.Select(ctx, backend.Query{
		Table:   tableBusinesses,
		Filters: []backend.Filter{backend.Eq("id", id), backend.Eq("active", true)},
		Limit:   1,
	})
	if err != nil {
		return Business{}, fmt.Errorf("catalog: get business %s: %w", id, err)
	}
	if len(recs) == 0 {
		return Business{}, ErrBusinessNotFound
	}
	var out Business
	if err := backend.DecodeOne(recs[0], &out); err != nil {
		return Business{}, fmt.Errorf("catalog: decode business: %w", err)
	}
	return out, nil
}

func (r *repository) ListProducts(ctx context.Context, businessID uuid.UUID, activeOnly bool) ([]Product, error) {
	filters := []backend.Filter{backend.Eq("business_id", businessID)}
	if activeOnly {
		filters = append(filters, backend.Eq("active", true))
	}
	recs, err := r.client.Select(ctx, backend.Query{
		Table:   tableProducts,
		Filters: filters,
		Order:   []backend.Order{{Column: "name"}},
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: list products: %w", err)
	}
	out := []Product{}
	if err := backend.Decode(recs, &out); err != nil {
		return nil, fmt.Errorf("catalog: decode products: %w", err)
	}
	return out, nil
}

func (r *repository) GetProduct(ctx context.Context, businessID, id uuid.UUID) (Product, error) {
	recs, err := r.client.Select(ctx, backend.Query{
		Table:   tableProducts,
		Filters: []backend.Filter{backend.Eq("id", id), backend.Eq("business_id", businessID)},
		Limit:   1,
	})
	if err != nil {
		return Product{}, fmt.Errorf("catalog: get product %s: %w", id, err)
	}
	if len(recs) == 0 {
		return Product{}, ErrProductNotFound
	}
	var out Product
	if err := backend.DecodeOne(recs[0], &out); err != nil {
		return Product{}, fmt.Errorf("catalog: decode product: %w", err)
	}
	return out, nil
}

func (r *repository) CreateProduct(ctx context.Context, p Product) (Product, error) {
	rec, err := backend.Encode(p)
	if err != nil {
		return Product{}, err
	}
	stored, err := r.client.Insert(ctx, tableProducts, rec)
	if err != nil {
		return Product{}, fmt.Errorf("catalog: create product: %w", err)
	}
	var out Product
	if err := backend.DecodeOne(stored, &out); err != nil {
		return Product{}, fmt.Errorf("catalog: decode product: %w", err)
	}
	return out, nil
}

func (r *repository) SaveProduct(ctx context.Context, p Product) error {
	rec, err := backend.Encode(p)
	if err != nil {
		return err
	}
	delete(rec, "id")
	delete(rec, "business_id")
	return r.PatchProduct(ctx, p.BusinessID, p.ID, rec)
}

func (r *repository) PatchProduct(ctx context.Context, businessID, id uuid.UUID, patch backend.Record) error {
	n, err := r.client.Update(ctx, tableProducts, productFilters(businessID, id), patch)
	if err != nil {
		return fmt.Errorf("catalog: update product %s: %w", id, err)
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *repository) DeleteProduct(ctx context.Context, businessID, id uuid.UUID) error {
	n, err := r.client.Delete(ctx, tableProducts, productFilters(businessID, id))
	if err != nil {
		return fmt.Errorf("catalog: delete product %s: %w", id, err)
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func productFilters(businessID, id uuid.UUID) []backend.Filter {
	return []backend.Filter{backend.Eq("id", id), backend.Eq("business_id", businessID)}
}
