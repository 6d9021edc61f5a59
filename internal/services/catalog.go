package services

import (
	"github.com/Jengeka/bingwa-sokoni/internal/config"
)

// Catalog is the versioned data bundle price table. Bundle changes are a
// configuration rollout, not a code change.
type Catalog struct {
	version string
	bundles map[string]int
}

// NewCatalog builds the catalog from configuration.
func NewCatalog(cfg *config.Config) *Catalog {
	bundles := make(map[string]int, len(cfg.Catalog.Bundles))
	for name, price := range cfg.Catalog.Bundles {
		bundles[name] = price
	}
	return &Catalog{
		version: cfg.Catalog.Version,
		bundles: bundles,
	}
}

// Version returns the catalog version identifier.
func (c *Catalog) Version() string {
	return c.version
}

// Price resolves a bundle name to its price in whole KSH.
func (c *Catalog) Price(bundle string) (int, bool) {
	price, ok := c.bundles[bundle]
	return price, ok
}
