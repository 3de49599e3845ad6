package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/models"
)

// lineTotal sums price × quantity over items in decimal arithmetic.
func lineTotal(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// checkTotal recomputes the order total from catalog prices and rejects a
// client figure that differs by more than tolerance.
func (s *Service) checkTotal(ctx context.Context, items []models.OrderItem, clientTotal float64) error {
	server := decimal.Zero
	for _, item := range items {
		product, err := s.catalog.FindByID(ctx, item.ProductID)
		if errors.Is(err, ErrNotFound) {
			return invalid(fmt.Sprintf("unknown product %s", item.ProductID))
		}
		if err != nil {
			return fmt.Errorf("catalog lookup %s: %w", item.ProductID, err)
		}
		line := decimal.NewFromFloat(product.EffectivePrice()).Mul(decimal.NewFromInt(int64(item.Quantity)))
		server = server.Add(line)
	}

	diff := server.Sub(decimal.NewFromFloat(clientTotal)).Abs()
	if diff.GreaterThan(decimal.NewFromFloat(s.opts.TotalTolerance)) {
		return invalid(fmt.Sprintf("totalAmount %.2f does not match catalog total %s", clientTotal, server.StringFixed(2)))
	}
	return nil
}

// reviewNoteFor turns a failed total check into the note stored on the order.
func reviewNoteFor(err error) string {
	var v *ValidationError
	if errors.As(err, &v) {
		return strings.Join(v.Problems, "; ")
	}
	return "total not checked: " + err.Error()
}
