package honor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tabortao/HomeRecord/internal/model"
)

// Catalog is the honor reference data, loaded once at startup and treated
// as read-only afterwards.
type Catalog struct {
	honors []model.Honor
	byKey  map[Key]model.Honor
}

// NewCatalog builds a catalog from honor definitions in scan order.
func NewCatalog(honors []model.Honor) *Catalog {
	c := &Catalog{
		honors: append([]model.Honor(nil), honors...),
		byKey:  make(map[Key]model.Honor, len(honors)),
	}
	for _, h := range honors {
		c.byKey[Key(h.Key)] = h
	}
	return c
}

// LoadCatalog reads the catalog from src. Entries without a rule, and rules
// without a catalog entry, are logged and otherwise ignored.
func LoadCatalog(ctx context.Context, src CatalogSource, logger *slog.Logger) (*Catalog, error) {
	honors, err := src.ListHonorCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load honor catalog: %w", err)
	}
	c := NewCatalog(honors)

	requester := 0
	for _, h := range honors {
		b, ok := BindingOf(Key(h.Key))
		switch {
		case ok && b == BindRequester:
			requester++
		case !ok && Key(h.Key) != KeyGrowthPioneer:
			logger.Warn("honor has no rule", "honor", h.Key, "name", h.Name)
		}
	}
	for key := range rules {
		if _, ok := c.byKey[key]; !ok {
			logger.Warn("rule has no catalog entry", "honor", key)
		}
	}
	logger.Info("honor catalog loaded", "honors", c.Len(), "requester_bound", requester)
	return c, nil
}

// All returns the catalog entries in scan order.
func (c *Catalog) All() []model.Honor {
	return append([]model.Honor(nil), c.honors...)
}

// Lookup returns the catalog entry for key.
func (c *Catalog) Lookup(key Key) (model.Honor, bool) {
	h, ok := c.byKey[key]
	return h, ok
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	return len(c.honors)
}
