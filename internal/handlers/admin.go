package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/ahmedandnoor/HappyClothify/internal/auth"
	"github.com/ahmedandnoor/HappyClothify/internal/store"
)

// AdminHandler serves the back office. Every route except the login pages
// is wrapped in Gate.RequireAdmin.
type AdminHandler struct {
	Store     *store.Store
	Templates *TemplateCache
	Gate      *auth.Gate
	UploadDir string
}

func (h *AdminHandler) LoginGet(w http.ResponseWriter, r *http.Request) {
	session := h.Gate.Session(r)
	data := map[string]interface{}{
		"CsrfField": csrf.TemplateField(r),
		"Flashes":   GetFlash(session),
	}
	session.Save(r, w)
	h.Templates.Render(w, "admin_login.html", data)
}

func (h *AdminHandler) LoginPost(w http.ResponseWriter, r *http.Request) {
	session := h.Gate.Session(r)

	if err := h.Gate.AdminLogin(r.FormValue("password")); errors.Is(err, auth.ErrInvalidCredentials) {
		flashRedirect(w, r, session, "error", "Incorrect Password", auth.AdminLoginPath)
		return
	}

	if err := h.Gate.BindAdmin(w, r); err != nil {
		slog.Error("Failed to save session", "error", err)
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}
	slog.Info("Admin login successful, redirecting to /admin")
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	products, err := h.Store.Products(r.Context())
	if err != nil {
		slog.Error("Failed to load products", "error", err)
		http.Error(w, "Error fetching products", http.StatusInternalServerError)
		return
	}
	stats, err := h.Store.DashboardStats(r.Context())
	if err != nil {
		slog.Error("Failed to compute stats", "error", err)
		http.Error(w, "Error fetching stats", http.StatusInternalServerError)
		return
	}

	session := h.Gate.Session(r)
	data := map[string]interface{}{
		"Products":  products,
		"Stats":     stats,
		"CsrfField": csrf.TemplateField(r),
		"Flashes":   GetFlash(session),
	}
	session.Save(r, w) // Save session to clear flashes
	h.Templates.Render(w, "admin_dashboard.html", data)
}
