package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/shop/internal/apperr"
	"github.com/xenking/shop/internal/domain/product"
	"github.com/xenking/shop/internal/pricefeed"
)

// ListProducts handles GET /products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for i := range products {
		encodeProduct(&e, &products[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

// GetProduct handles GET /products/{sku}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.Get(r.Context(), r.PathValue("sku"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeProduct(&e, p)
	writeJSON(w, http.StatusOK, &e)
}

// CreateProduct handles POST /products.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCreateProduct(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	p, err := h.products.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeProduct(&e, p)
	w.Header().Set("Location", Prefix+"/products/"+p.SKU.String())
	writeJSON(w, http.StatusCreated, &e)
}

// UpdatePrices handles POST /products/update-prices, a multipart upload of a
// CSV price feed in the "file" field.
func (h *Handler) UpdatePrices(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorStatus(w, r, apperr.Validation("File is too large"), http.StatusRequestEntityTooLarge)
			return
		}
		writeError(w, r, apperr.Validation("Invalid multipart form"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, apperr.Validation("File is required"))
		return
	}
	defer func() { _ = file.Close() }()

	updates, err := pricefeed.Parse(file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	n, err := h.products.BulkUpdatePrices(r.Context(), updates)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("updatedCount")
	e.Int(n)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// decodeCreateProduct reads {"title","description","price","sku"}.
func decodeCreateProduct(r *http.Request) (product.CreateRequest, error) {
	var req product.CreateRequest

	d, err := bodyDecoder(r)
	if err != nil {
		return req, err
	}

	err = d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "title":
			req.Title, err = d.Str()
		case "description":
			req.Description, err = d.Str()
		case "sku", "SKU":
			req.SKU, err = d.Str()
		case "price":
			var n jx.Num
			if n, err = d.Num(); err == nil {
				req.Price, err = decimal.NewFromString(n.String())
			}
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return req, errors.Wrap(errBadBody, err.Error())
	}
	return req, nil
}
