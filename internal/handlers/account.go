package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/ahmedandnoor/HappyClothify/internal/auth"
	"github.com/ahmedandnoor/HappyClothify/internal/models"
	"github.com/ahmedandnoor/HappyClothify/internal/store"
)

type AccountHandler struct {
	Store     *store.Store
	Templates *TemplateCache
	Gate      *auth.Gate
}

func (h *AccountHandler) LoginGet(w http.ResponseWriter, r *http.Request) {
	session := h.Gate.Session(r)
	data := map[string]interface{}{
		"CsrfField": csrf.TemplateField(r),
		"Flashes":   GetFlash(session),
	}
	session.Save(r, w)
	h.Templates.Render(w, "login.html", data)
}

func (h *AccountHandler) LoginPost(w http.ResponseWriter, r *http.Request) {
	session := h.Gate.Session(r)

	user, err := h.Gate.Login(r.Context(), r.FormValue("username"), r.FormValue("password"))
	if errors.Is(err, auth.ErrInvalidCredentials) {
		flashRedirect(w, r, session, "error", "Invalid credentials", auth.CustomerLoginPath)
		return
	}
	if err != nil {
		slog.Error("Failed to check credentials", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if err := h.Gate.Bind(w, r, *user); err != nil {
		slog.Error("Failed to save session", "error", err)
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}
	slog.Info("Customer logged in", "username", user.Username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AccountHandler) RegisterGet(w http.ResponseWriter, r *http.Request) {
	session := h.Gate.Session(r)
	data := map[string]interface{}{
		"CsrfField": csrf.TemplateField(r),
		"Flashes":   GetFlash(session),
	}
	session.Save(r, w)
	h.Templates.Render(w, "register.html", data)
}

// registrationFields must all be present in the form; empty values pass.
var registrationFields = []string{"username", "email", "password", "whatsapp"}

func (h *AccountHandler) RegisterPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	if missing := missingFields(r, registrationFields); len(missing) > 0 {
		http.Error(w, "Missing form fields: "+missing[0], http.StatusBadRequest)
		return
	}

	user := models.User{
		Username: r.PostForm.Get("username"),
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
		WhatsApp: r.PostForm.Get("whatsapp"),
	}
	if err := h.Store.AppendUser(r.Context(), user); err != nil {
		slog.Error("Failed to register user", "error", err)
		http.Error(w, "Failed to register", http.StatusInternalServerError)
		return
	}

	slog.Info("User registered", "username", user.Username)
	flashRedirect(w, r, h.Gate.Session(r), "success", "Account created. Please log in.", auth.CustomerLoginPath)
}

// Logout clears both the customer and the admin identity.
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Gate.Logout(w, r); err != nil {
		slog.Error("Failed to clear session", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func missingFields(r *http.Request, fields []string) []string {
	var missing []string
	for _, f := range fields {
		if _, ok := r.PostForm[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}
