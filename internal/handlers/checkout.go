package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/csrf"

	"github.com/ahmedandnoor/HappyClothify/internal/auth"
	"github.com/ahmedandnoor/HappyClothify/internal/models"
	"github.com/ahmedandnoor/HappyClothify/internal/store"
)

// CSRFFieldName is the hidden form field carrying the CSRF token. It is
// never copied into an order address.
const CSRFFieldName = "csrf_token"

// CheckoutHandler drives product -> payment choice -> address -> confirmation.
// Every step sits behind Gate.RequireCustomer.
type CheckoutHandler struct {
	Store     *store.Store
	Templates *TemplateCache
	Gate      *auth.Gate
	Now       func() time.Time
}

func (h *CheckoutHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *CheckoutHandler) CashOnDelivery(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/address/%d?from=cod", id), http.StatusSeeOther)
}

// DirectPay shows the payment step. Nothing is charged.
func (h *CheckoutHandler) DirectPay(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	h.Templates.Render(w, "payment.html", map[string]interface{}{
		"ProductID": id,
		"CsrfField": csrf.TemplateField(r),
	})
}

// Payment accepts whatever was submitted and moves on to the address step.
func (h *CheckoutHandler) Payment(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/address/%d?from=pay", id), http.StatusSeeOther)
}

func (h *CheckoutHandler) AddressForm(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	h.Templates.Render(w, "address.html", map[string]interface{}{
		"ProductID": id,
		"From":      r.URL.Query().Get("from"),
		"CsrfField": csrf.TemplateField(r),
	})
}

// SubmitAddress records the order: the bound customer, a snapshot of the
// product, the submitted fields verbatim and the current time.
func (h *CheckoutHandler) SubmitAddress(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	product, ok := lookupProduct(w, r, h.Store)
	if !ok {
		return
	}

	customer := auth.IdentityFrom(r.Context()).Customer
	order := models.Order{
		Username:  customer.Username,
		WhatsApp:  customer.WhatsApp,
		Product:   *product,
		Address:   addressFields(r),
		Timestamp: h.now().Format(models.TimestampLayout),
	}

	if err := h.Store.AppendOrder(r.Context(), order); err != nil {
		slog.Error("Failed to record order", "error", err)
		http.Error(w, "Failed to record order", http.StatusInternalServerError)
		return
	}

	slog.Info("Order recorded", "username", order.Username, "product_id", product.ID, "timestamp", order.Timestamp)
	http.Redirect(w, r, "/order_confirmation", http.StatusSeeOther)
}

func addressFields(r *http.Request) map[string]string {
	address := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		if key == CSRFFieldName || len(values) == 0 {
			continue
		}
		address[key] = values[0]
	}
	return address
}

func (h *CheckoutHandler) Confirmation(w http.ResponseWriter, r *http.Request) {
	h.Templates.Render(w, "order_confirmation.html", map[string]interface{}{
		"Identity": auth.IdentityFrom(r.Context()),
	})
}
