package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/ahmedandnoor/HappyClothify/internal/auth"
	"github.com/ahmedandnoor/HappyClothify/internal/store"
)

// Deps is everything the router needs to build its handlers.
type Deps struct {
	Store     *store.Store
	Gate      *auth.Gate
	Templates *TemplateCache
	StaticDir string
	UploadDir string
	// LoginRateLimit caps credential POSTs per client IP per minute.
	// Zero disables limiting.
	LoginRateLimit int
}

// NewRouter registers every storefront, account and admin route.
func NewRouter(d Deps) *http.ServeMux {
	homeHandler := &HomeHandler{Store: d.Store, Templates: d.Templates, Gate: d.Gate}
	checkoutHandler := &CheckoutHandler{Store: d.Store, Templates: d.Templates, Gate: d.Gate}
	accountHandler := &AccountHandler{Store: d.Store, Templates: d.Templates, Gate: d.Gate}
	adminHandler := &AdminHandler{Store: d.Store, Templates: d.Templates, Gate: d.Gate, UploadDir: d.UploadDir}

	limit := func(h http.HandlerFunc) http.Handler { return h }
	if d.LoginRateLimit > 0 {
		limiter := httprate.LimitByIP(d.LoginRateLimit, time.Minute)
		limit = func(h http.HandlerFunc) http.Handler { return limiter(h) }
	}
	customer := d.Gate.RequireCustomer
	admin := d.Gate.RequireAdmin

	mux := http.NewServeMux()

	// Static Files
	if d.StaticDir != "" {
		fileServer := http.FileServer(http.Dir(d.StaticDir))
		mux.Handle("GET /static/", http.StripPrefix("/static", fileServer))
	}

	// Catalog
	mux.HandleFunc("GET /{$}", homeHandler.Index)
	mux.HandleFunc("GET /product/{id}", homeHandler.Product)

	// Checkout
	mux.HandleFunc("GET /cash_on_delivery/{id}", customer(checkoutHandler.CashOnDelivery))
	mux.HandleFunc("GET /direct_pay/{id}", customer(checkoutHandler.DirectPay))
	mux.HandleFunc("POST /payment/{id}", customer(checkoutHandler.Payment))
	mux.HandleFunc("GET /address/{id}", customer(checkoutHandler.AddressForm))
	mux.HandleFunc("POST /address/{id}", customer(checkoutHandler.SubmitAddress))
	mux.HandleFunc("GET /order_confirmation", checkoutHandler.Confirmation)

	// Accounts
	mux.HandleFunc("GET /login", accountHandler.LoginGet)
	mux.Handle("POST /login", limit(accountHandler.LoginPost))
	mux.HandleFunc("GET /register", accountHandler.RegisterGet)
	mux.Handle("POST /register", limit(accountHandler.RegisterPost))
	mux.HandleFunc("GET /logout", accountHandler.Logout)

	// Admin
	mux.HandleFunc("GET /admin/login", adminHandler.LoginGet)
	mux.Handle("POST /admin/login", limit(adminHandler.LoginPost))
	mux.HandleFunc("GET /admin", admin(adminHandler.Dashboard))
	mux.HandleFunc("GET /admin/orders", admin(adminHandler.ListOrders))
	mux.HandleFunc("POST /admin/orders/{index}/delete", admin(adminHandler.DeleteOrder))
	mux.HandleFunc("GET /admin/users", admin(adminHandler.ListUsers))
	mux.HandleFunc("POST /admin/users/{index}/delete", admin(adminHandler.DeleteUser))
	mux.HandleFunc("GET /admin/products/new", admin(adminHandler.AddProductForm))
	mux.HandleFunc("POST /admin/products", admin(adminHandler.CreateProduct))
	mux.HandleFunc("GET /admin/products/{id}/edit", admin(adminHandler.EditProductForm))
	mux.HandleFunc("POST /admin/products/{id}", admin(adminHandler.UpdateProduct))
	mux.HandleFunc("POST /admin/products/{id}/delete", admin(adminHandler.DeleteProduct))

	return mux
}
