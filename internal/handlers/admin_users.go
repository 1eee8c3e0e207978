package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/csrf"
)

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.Users(r.Context())
	if err != nil {
		slog.Error("Failed to load users", "error", err)
		http.Error(w, "Error fetching users", http.StatusInternalServerError)
		return
	}

	session := h.Gate.Session(r)
	data := map[string]interface{}{
		"Users":     users,
		"CsrfField": csrf.TemplateField(r),
		"Flashes":   GetFlash(session),
	}
	session.Save(r, w)
	h.Templates.Render(w, "admin_users.html", data)
}

// DeleteUser is positional, like DeleteOrder. Out of range is a no-op.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	removed, err := h.Store.DeleteUserAt(r.Context(), index)
	if err != nil {
		slog.Error("Failed to delete user", "index", index, "error", err)
		http.Error(w, "Error deleting user", http.StatusInternalServerError)
		return
	}
	if removed {
		slog.Info("User deleted", "index", index)
	}
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}
