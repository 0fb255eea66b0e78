package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/shop/internal/domain/order"
	"github.com/xenking/shop/internal/domain/product"
)

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// encodeMoney writes d as a JSON number with two decimals.
func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.StringFixed(2)))
}

func encodeProduct(e *jx.Encoder, p *product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(p.ID)
	e.FieldStart("title")
	e.Str(p.Title.String())
	e.FieldStart("description")
	e.Str(p.Description.String())
	e.FieldStart("price")
	encodeMoney(e, p.Price.Decimal())
	e.FieldStart("sku")
	e.Str(p.SKU.String())
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(o.ID)
	e.FieldStart("orderDate")
	e.Str(o.Date.UTC().Format(time.RFC3339))
	e.FieldStart("totalPrice")
	encodeMoney(e, o.TotalPrice)
	e.FieldStart("discountPercentage")
	e.Num(jx.Num(o.Discount.Decimal().String()))
	e.FieldStart("lines")
	e.ArrStart()
	for _, l := range o.Lines {
		e.ObjStart()
		e.FieldStart("productSKU")
		e.Str(l.SKU.String())
		e.FieldStart("quantity")
		e.Int(l.Quantity.Int())
		e.FieldStart("price")
		encodeMoney(e, l.Price.Decimal())
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}
