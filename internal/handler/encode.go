package handler

import (
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/catalog-browser/internal/domain/catalog"
	"github.com/xenking/catalog-browser/internal/domain/product"
)

// encodeListState writes
//
//	{"status":"success","products":[...]}
//	{"status":"error","message":"...","code":503}
//	{"status":"loading"}
func encodeListState(e *jx.Encoder, s catalog.ListState) {
	e.ObjStart()
	encodeStatus(e, s.Status, s.Message, s.Code)
	if products, ok := s.Get(); ok {
		e.FieldStart("products")
		e.ArrStart()
		for _, p := range products {
			encodeProduct(e, p)
		}
		e.ArrEnd()
	}
	e.ObjEnd()
}

// encodeDetailState is encodeListState with a single "product" payload.
func encodeDetailState(e *jx.Encoder, s catalog.DetailState) {
	e.ObjStart()
	encodeStatus(e, s.Status, s.Message, s.Code)
	if p, ok := s.Get(); ok {
		e.FieldStart("product")
		encodeProduct(e, p)
	}
	e.ObjEnd()
}

func encodeStatus(e *jx.Encoder, status catalog.Status, message string, code int) {
	e.FieldStart("status")
	e.Str(status.String())
	if status != catalog.StatusError {
		return
	}
	e.FieldStart("message")
	e.Str(message)
	if code != 0 {
		e.FieldStart("code")
		e.Int(code)
	}
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(p.ID)
	e.FieldStart("title")
	e.Str(p.Title)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("price")
	encodeDecimal(e, p.Price)
	e.FieldStart("discountPercentage")
	encodeDecimal(e, p.DiscountPercentage)
	e.FieldStart("discountedPrice")
	encodeDecimal(e, p.DiscountedPrice())
	e.FieldStart("hasDiscount")
	e.Bool(p.HasDiscount())
	e.FieldStart("rating")
	encodeDecimal(e, p.Rating)
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("brand")
	e.Str(p.Brand)
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("thumbnail")
	e.Str(p.Thumbnail)
	e.FieldStart("images")
	e.ArrStart()
	for _, img := range p.Images {
		e.Str(img)
	}
	e.ArrEnd()
	e.ObjEnd()
}

// encodeDecimal writes d as a JSON number without a float round trip.
func encodeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}
