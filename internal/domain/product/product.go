package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	hundred   = decimal.NewFromInt(100)
	maxRating = decimal.NewFromInt(5)
)

// Product represents a catalog item as returned by the remote catalog API.
// Values are immutable once constructed: callers must not modify Images.
type Product struct {
	ID                 int64
	Title              string
	Description        string
	Price              decimal.Decimal
	DiscountPercentage decimal.Decimal
	Rating             decimal.Decimal
	Stock              int
	Brand              string
	Category           string
	Thumbnail          string
	Images             []string
}

// Validate reports whether the numeric fields are within their documented
// ranges.
func (p Product) Validate() error {
	switch {
	case p.Price.IsNegative():
		return errors.Errorf("product %d: price %s is negative", p.ID, p.Price)
	case p.DiscountPercentage.IsNegative() || p.DiscountPercentage.GreaterThan(hundred):
		return errors.Errorf("product %d: discount %s%% out of range [0, 100]", p.ID, p.DiscountPercentage)
	case p.Rating.IsNegative() || p.Rating.GreaterThan(maxRating):
		return errors.Errorf("product %d: rating %s out of range [0, 5]", p.ID, p.Rating)
	case p.Stock < 0:
		return errors.Errorf("product %d: stock %d is negative", p.ID, p.Stock)
	}
	return nil
}

// HasDiscount reports whether a non-zero discount applies.
func (p Product) HasDiscount() bool {
	return p.DiscountPercentage.IsPositive()
}

// DiscountedPrice returns the price after applying DiscountPercentage,
// rounded to 2 decimal places.
func (p Product) DiscountedPrice() decimal.Decimal {
	if !p.HasDiscount() {
		return p.Price
	}
	return p.Price.Mul(hundred.Sub(p.DiscountPercentage)).Div(hundred).Round(2)
}

// Collection is a page of products together with the pagination metadata
// returned by the list endpoint.
type Collection struct {
	Products []Product
	Total    int
	Skip     int
	Limit    int
}

// Service performs the remote catalog calls. Implementations make at most
// one attempt per call.
type Service interface {
	FetchAll(ctx context.Context) (*Collection, error)
	FetchByID(ctx context.Context, id int64) (*Product, error)
}
