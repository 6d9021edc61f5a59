package services

import (
	"fmt"

	"github.com/Jengeka/bingwa-sokoni/internal/config"
	"github.com/Jengeka/bingwa-sokoni/internal/models"
	"github.com/shopspring/decimal"
)

// ProductSelection is the raw client input for a purchase.
type ProductSelection struct {
	Product models.ProductKind
	Amount  int    // airtime amount in whole KSH
	Bundle  string // data bundle name
}

// PricedProduct is the validator's normalized output: a concrete price and a
// human-readable description for the transaction log.
type PricedProduct struct {
	Product     models.ProductKind
	Bundle      string
	Price       decimal.Decimal
	Description string
}

// PurchaseValidator checks amount/bundle legality before any state is
// created or any external call is made. It has no side effects.
type PurchaseValidator struct {
	minAirtime int
	maxAirtime int
	catalog    *Catalog
}

// NewPurchaseValidator creates a new PurchaseValidator
func NewPurchaseValidator(cfg *config.Config, catalog *Catalog) *PurchaseValidator {
	return &PurchaseValidator{
		minAirtime: cfg.Airtime.MinAmount,
		maxAirtime: cfg.Airtime.MaxAmount,
		catalog:    catalog,
	}
}

// Validate normalizes the selection into a priced product or returns a
// ValidationError.
func (v *PurchaseValidator) Validate(sel ProductSelection) (*PricedProduct, error) {
	switch sel.Product {
	case models.ProductAirtime:
		if sel.Amount <= 0 {
			return nil, &ValidationError{Field: "amount", Reason: "must be a positive integer"}
		}
		if sel.Amount < v.minAirtime || sel.Amount > v.maxAirtime {
			return nil, &ValidationError{
				Field:  "amount",
				Reason: fmt.Sprintf("must be between KSH %d and KSH %d", v.minAirtime, v.maxAirtime),
			}
		}
		return &PricedProduct{
			Product:     models.ProductAirtime,
			Price:       decimal.NewFromInt(int64(sel.Amount)),
			Description: fmt.Sprintf("Airtime purchase of KSH %d", sel.Amount),
		}, nil

	case models.ProductData:
		price, ok := v.catalog.Price(sel.Bundle)
		if !ok {
			return nil, &ValidationError{
				Field:  "bundle",
				Reason: fmt.Sprintf("unknown bundle %q (catalog %s)", sel.Bundle, v.catalog.Version()),
			}
		}
		return &PricedProduct{
			Product:     models.ProductData,
			Bundle:      sel.Bundle,
			Price:       decimal.NewFromInt(int64(price)),
			Description: fmt.Sprintf("Data bundle purchase: %s for KSH %d", sel.Bundle, price),
		}, nil

	default:
		return nil, &ValidationError{Field: "product", Reason: fmt.Sprintf("unknown product kind %q", sel.Product)}
	}
}
