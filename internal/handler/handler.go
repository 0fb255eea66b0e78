// Package handler exposes the catalog and order services over a versioned
// JSON REST API.
package handler

import (
	"net/http"

	"github.com/xenking/shop/internal/domain/auth"
	"github.com/xenking/shop/internal/domain/order"
	"github.com/xenking/shop/internal/domain/product"
)

// Prefix is the mount point of the API.
const Prefix = "/api/v1"

const defaultMaxUploadBytes = 10 << 20

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// MaxUploadBytes caps the size of price feed uploads.
	MaxUploadBytes int64
}

// Handler serves the REST API, delegating business logic to the domain
// services.
type Handler struct {
	products  *product.Service
	orders    *order.Service
	security  *Security
	maxUpload int64
}

// New constructs a Handler with the required domain dependencies.
func New(cfg Config, products *product.Service, orders *order.Service, security *Security) *Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{
		products:  products,
		orders:    orders,
		security:  security,
		maxUpload: cfg.MaxUploadBytes,
	}
}

// Register mounts every route under Prefix on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	orders := h.security.Require(auth.ScopeOrdersWrite)
	catalog := h.security.Require(auth.ScopeCatalogWrite)

	mux.Handle("POST "+Prefix+"/orders", orders(h.CreateOrder))
	mux.Handle("GET "+Prefix+"/orders/{orderId}", orders(h.GetOrder))
	mux.Handle("POST "+Prefix+"/orders/{orderId}/apply-discount", orders(h.ApplyDiscount))

	mux.HandleFunc("GET "+Prefix+"/products", h.ListProducts)
	mux.HandleFunc("GET "+Prefix+"/products/{sku}", h.GetProduct)
	mux.Handle("POST "+Prefix+"/products", catalog(h.CreateProduct))
	mux.Handle("POST "+Prefix+"/products/update-prices", catalog(h.UpdatePrices))
}
