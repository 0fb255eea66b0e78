package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/shop/internal/apperr"
	"github.com/xenking/shop/internal/domain/order"
)

const maxJSONBody = 1 << 20

// CreateOrder handles POST /orders.
//
// Unknown SKUs are a problem with the request body, so NotFound is answered
// with 400 here.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	lines, err := decodeCreateOrder(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := h.orders.Create(r.Context(), lines)
	if err != nil {
		status := statusOf(apperr.KindOf(err))
		if status == http.StatusNotFound {
			status = http.StatusBadRequest
		}
		writeErrorStatus(w, r, err, status)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(id)
	e.ObjEnd()

	w.Header().Set("Location", Prefix+"/orders/"+strconv.FormatInt(id, 10))
	writeJSON(w, http.StatusCreated, &e)
}

// GetOrder handles GET /orders/{orderId}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeOrder(&e, o)
	writeJSON(w, http.StatusOK, &e)
}

// ApplyDiscount handles POST /orders/{orderId}/apply-discount.
func (h *Handler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	percent, err := decodeDiscount(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.orders.ApplyDiscount(r.Context(), id, percent)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("totalPrice")
	encodeMoney(&e, o.TotalPrice)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

func orderID(r *http.Request) (int64, error) {
	raw := r.PathValue("orderId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validationf("Invalid order id %q.", raw)
	}
	return id, nil
}

// decodeCreateOrder reads {"products":[{"productSKU":"...","quantity":1}]}.
func decodeCreateOrder(r *http.Request) ([]order.LineRequest, error) {
	d, err := bodyDecoder(r)
	if err != nil {
		return nil, err
	}

	var lines []order.LineRequest
	err = d.Obj(func(d *jx.Decoder, key string) error {
		if key != "products" {
			return d.Skip()
		}
		if d.Next() == jx.Null {
			return d.Null()
		}
		return d.Arr(func(d *jx.Decoder) error {
			var l order.LineRequest
			if err := d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "productSKU":
					v, err := d.Str()
					l.SKU = v
					return err
				case "quantity":
					v, err := d.Int()
					l.Quantity = v
					return err
				default:
					return d.Skip()
				}
			}); err != nil {
				return err
			}
			lines = append(lines, l)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(errBadBody, err.Error())
	}
	return lines, nil
}

// decodeDiscount reads {"discountPercentage":<number>}.
func decodeDiscount(r *http.Request) (decimal.Decimal, error) {
	d, err := bodyDecoder(r)
	if err != nil {
		return decimal.Zero, err
	}

	var (
		percent decimal.Decimal
		seen    bool
	)
	err = d.Obj(func(d *jx.Decoder, key string) error {
		if key != "discountPercentage" {
			return d.Skip()
		}
		seen = true

		var raw string
		switch d.Next() {
		case jx.Number:
			n, err := d.Num()
			if err != nil {
				return err
			}
			raw = n.String()
		case jx.String:
			s, err := d.Str()
			if err != nil {
				return err
			}
			raw = s
		default:
			return errors.New("discountPercentage must be a number")
		}

		v, err := decimal.NewFromString(raw)
		percent = v
		return err
	})
	if err != nil || !seen {
		return decimal.Zero, errBadBody
	}
	return percent, nil
}

func bodyDecoder(r *http.Request) (*jx.Decoder, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	if err != nil {
		return nil, errors.Wrap(errBadBody, err.Error())
	}
	if len(body) == 0 {
		return nil, errBadBody
	}
	return jx.DecodeBytes(body), nil
}
