package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/csrf"
)

func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Store.Orders(r.Context())
	if err != nil {
		slog.Error("Failed to load orders", "error", err)
		http.Error(w, "Error fetching orders", http.StatusInternalServerError)
		return
	}

	session := h.Gate.Session(r)
	data := map[string]interface{}{
		"Orders":    orders,
		"CsrfField": csrf.TemplateField(r),
		"Flashes":   GetFlash(session),
	}
	session.Save(r, w)
	h.Templates.Render(w, "admin_orders.html", data)
}

// DeleteOrder removes the order at the listed position. The list page and
// the stored collection share one order, so the index is the storage index.
func (h *AdminHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}

	removed, err := h.Store.DeleteOrderAt(r.Context(), index)
	if err != nil {
		slog.Error("Failed to delete order", "index", index, "error", err)
		http.Error(w, "Error deleting order", http.StatusInternalServerError)
		return
	}
	if removed {
		slog.Info("Order deleted", "index", index)
	}
	http.Redirect(w, r, "/admin/orders", http.StatusSeeOther)
}
