package productapi

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xenking/catalog-browser/internal/domain/product"
)

const demoSize = 10

var (
	_ product.Service = (*Demo)(nil)

	demoCategories = []string{"electronics", "clothing", "home"}
	demoUnitPrice  = decimal.RequireFromString("9.99")
)

// Demo is an in-memory product.Service with a fixed catalog of ten products.
// It never fails except for unknown ids and cancelled contexts.
type Demo struct {
	products []product.Product
}

// NewDemo builds the demo catalog.
func NewDemo() *Demo {
	products := make([]product.Product, 0, demoSize)
	for i := 0; i < demoSize; i++ {
		products = append(products, demoProduct(i))
	}
	return &Demo{products: products}
}

func demoProduct(index int) product.Product {
	id := int64(index + 1)

	discount := decimal.Zero
	if index%2 == 0 {
		discount = decimal.NewFromInt(10)
	}

	return product.Product{
		ID:                 id,
		Title:              fmt.Sprintf("Product %d", id),
		Description:        fmt.Sprintf("Demo description for product %d", id),
		Price:              demoUnitPrice.Mul(decimal.NewFromInt(id)),
		DiscountPercentage: discount,
		Rating:             decimal.NewFromFloat(4).Add(decimal.New(int64(index%10), -1)),
		Stock:              50 + index,
		Brand:              "MockBrand",
		Category:           demoCategories[index%len(demoCategories)],
		Thumbnail:          fmt.Sprintf("https://via.placeholder.com/150?text=Product+%d", id),
		Images: []string{
			fmt.Sprintf("https://via.placeholder.com/600?text=Product+%d+front", id),
			fmt.Sprintf("https://via.placeholder.com/600?text=Product+%d+back", id),
		},
	}
}

// FetchAll returns a copy of the demo catalog.
func (d *Demo) FetchAll(ctx context.Context) (*product.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	products := make([]product.Product, len(d.products))
	copy(products, d.products)
	return &product.Collection{
		Products: products,
		Total:    len(products),
		Limit:    len(products),
	}, nil
}

// FetchByID returns the demo product with the given id or product.ErrNotFound.
func (d *Demo) FetchByID(ctx context.Context, id int64) (*product.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id < 1 || id > int64(len(d.products)) {
		return nil, product.ErrNotFound
	}
	p := d.products[id-1]
	return &p, nil
}

// Ping always succeeds.
func (d *Demo) Ping(context.Context) error {
	return nil
}
