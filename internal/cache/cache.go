package cache

import (
	"context"
	"time"

	"spazapos/backend/internal/domain"
)

// ProductCache fronts barcode lookups on the scan hot path. Keys are raw
// barcodes; a miss is (nil, false, nil).
type ProductCache interface {
	Get(ctx context.Context, barcode string) (*domain.Product, bool, error)
	Set(ctx context.Context, barcode string, value *domain.Product, ttl time.Duration) error
	Delete(ctx context.Context, barcode string) error
}

type NoopProductCache struct{}

func (NoopProductCache) Get(_ context.Context, _ string) (*domain.Product, bool, error) {
	return nil, false, nil
}

func (NoopProductCache) Set(_ context.Context, _ string, _ *domain.Product, _ time.Duration) error {
	return nil
}

func (NoopProductCache) Delete(_ context.Context, _ string) error {
	return nil
}
