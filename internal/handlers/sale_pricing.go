package handlers

import (
	"errors"

	"storefront/internal/store"
)

var (
	errPriceNotPositive     = errors.New("price must be greater than 0")
	errSalePriceMissing     = errors.New("salePrice is required when saleEnabled is true")
	errSalePriceNotPositive = errors.New("salePrice must be greater than 0")
	errSaleNotBelowPrice    = errors.New("salePrice must be less than price")
)

// salePricing is the list price and sale state of one product.
type salePricing struct {
	Price       float64
	SaleEnabled bool
	SalePrice   float64
}

// check requires a positive list price and, for an enabled sale, a positive
// sale price strictly below it.
func (p salePricing) check() error {
	switch {
	case p.Price <= 0:
		return errPriceNotPositive
	case !p.SaleEnabled:
		return nil
	case p.SalePrice == 0:
		return errSalePriceMissing
	case p.SalePrice < 0:
		return errSalePriceNotPositive
	case p.SalePrice >= p.Price:
		return errSaleNotBelowPrice
	}
	return nil
}

// merge applies the present fields of a partial update. A disabled sale
// never keeps a sale price. An update that touches no pricing field is
// accepted as is.
func (p salePricing) merge(price *float64, saleEnabled *bool, salePrice *float64) (salePricing, error) {
	if price == nil && saleEnabled == nil && salePrice == nil {
		return p, nil
	}

	next := p
	if price != nil {
		next.Price = *price
	}
	if saleEnabled != nil {
		next.SaleEnabled = *saleEnabled
	}
	if salePrice != nil {
		next.SalePrice = *salePrice
	}
	if !next.SaleEnabled {
		next.SalePrice = 0
	}

	if err := next.check(); err != nil {
		return p, err
	}
	return next, nil
}

// changes copies the fields that differ between p and next into u.
func (p salePricing) changes(next salePricing, u *store.ProductUpdate) {
	if next.Price != p.Price {
		u.Price = &next.Price
	}
	if next.SaleEnabled != p.SaleEnabled {
		u.SaleEnabled = &next.SaleEnabled
	}
	if next.SalePrice != p.SalePrice {
		u.SalePrice = &next.SalePrice
	}
}
