package productapi

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/catalog-browser/internal/domain/product"
)

// DecodeCollection parses the list endpoint payload:
//
//	{"products": [...], "total": 100, "skip": 0, "limit": 30}
//
// Unknown keys are skipped. Every product is validated.
func DecodeCollection(data []byte) (*product.Collection, error) {
	var c product.Collection
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "products":
			c.Products = make([]product.Product, 0)
			return d.Arr(func(d *jx.Decoder) error {
				p, err := decodeProduct(d)
				if err != nil {
					return err
				}
				c.Products = append(c.Products, p)
				return nil
			})
		case "total":
			return decodeInt(d, &c.Total)
		case "skip":
			return decodeInt(d, &c.Skip)
		case "limit":
			return decodeInt(d, &c.Limit)
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, &product.DecodeError{Err: err}
	}
	return &c, nil
}

// DecodeProduct parses a single product object.
func DecodeProduct(data []byte) (*product.Product, error) {
	p, err := decodeProduct(jx.DecodeBytes(data))
	if err != nil {
		return nil, &product.DecodeError{Err: err}
	}
	return &p, nil
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var (
		p     product.Product
		hasID bool
	)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := d.Int64()
			if err != nil {
				return errors.Wrap(err, "id")
			}
			p.ID = v
			hasID = true
			return nil
		case "title":
			return decodeStr(d, &p.Title)
		case "description":
			return decodeStr(d, &p.Description)
		case "price":
			return decodeDecimal(d, &p.Price)
		case "discountPercentage":
			return decodeDecimal(d, &p.DiscountPercentage)
		case "rating":
			return decodeDecimal(d, &p.Rating)
		case "stock":
			return decodeInt(d, &p.Stock)
		case "brand":
			return decodeStr(d, &p.Brand)
		case "category":
			return decodeStr(d, &p.Category)
		case "thumbnail":
			return decodeStr(d, &p.Thumbnail)
		case "images":
			if d.Next() == jx.Null {
				return d.Null()
			}
			p.Images = make([]string, 0)
			return d.Arr(func(d *jx.Decoder) error {
				s, err := d.Str()
				if err != nil {
					return errors.Wrap(err, "images")
				}
				p.Images = append(p.Images, s)
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return product.Product{}, err
	}

	if !hasID {
		return product.Product{}, errors.New("product without id")
	}
	if err := p.Validate(); err != nil {
		return product.Product{}, err
	}
	return p, nil
}

// decodeStr reads a string, treating null as empty.
func decodeStr(d *jx.Decoder, dst *string) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return err
	}
	*dst = s
	return nil
}

func decodeInt(d *jx.Decoder, dst *int) error {
	v, err := d.Int()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// decodeDecimal reads a JSON number without a float round trip.
func decodeDecimal(d *jx.Decoder, dst *decimal.Decimal) error {
	if d.Next() != jx.Number {
		return errors.Errorf("expected number, got %s", d.Next())
	}
	n, err := d.Num()
	if err != nil {
		return err
	}
	v, err := decimal.NewFromString(n.String())
	if err != nil {
		return errors.Wrapf(err, "parse decimal %q", n.String())
	}
	*dst = v
	return nil
}
