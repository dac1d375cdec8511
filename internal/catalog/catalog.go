// Package catalog supplies credit products to the simulator.
package catalog

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/iwvelando/credit-simulator/pkg/credit"
)

// Source returns the products of one family.
type Source interface {
	Products(ctx context.Context, family string) ([]credit.Product, error)
}

// StaticSource serves a catalog held in memory, typically loaded from the
// configuration file. The catalog can be replaced while serving.
type StaticSource struct {
	mu      sync.RWMutex
	catalog credit.Catalog
	logger  *zap.Logger
}

// NewStaticSource creates a source serving catalog.
func NewStaticSource(catalog credit.Catalog, logger *zap.Logger) *StaticSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StaticSource{catalog: catalog, logger: logger}
}

// Products returns a copy of the family's products.
func (s *StaticSource) Products(ctx context.Context, family string) ([]credit.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]credit.Product, len(s.catalog[family]))
	copy(products, s.catalog[family])
	return products, nil
}

// Replace swaps in a new catalog.
func (s *StaticSource) Replace(catalog credit.Catalog) {
	s.mu.Lock()
	s.catalog = catalog
	s.mu.Unlock()

	counts := make([]zap.Field, 0, len(credit.Families)+1)
	counts = append(counts, zap.String("op", "catalog.Replace"))
	for _, family := range credit.Families {
		counts = append(counts, zap.Int(family, len(catalog[family])))
	}
	s.logger.Info("catalog replaced", counts...)
}
