package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ahmedandnoor/HappyClothify/internal/auth"
	"github.com/ahmedandnoor/HappyClothify/internal/models"
	"github.com/ahmedandnoor/HappyClothify/internal/store"
)

type HomeHandler struct {
	Store     *store.Store
	Templates *TemplateCache
	Gate      *auth.Gate
}

func (h *HomeHandler) Index(w http.ResponseWriter, r *http.Request) {
	products, err := h.Store.Products(r.Context())
	if err != nil {
		slog.Error("Failed to load products", "error", err)
		http.Error(w, "Error fetching products", http.StatusInternalServerError)
		return
	}

	session := h.Gate.Session(r)
	data := map[string]interface{}{
		"Products": products,
		"Identity": h.Gate.Identity(r),
		"Flashes":  GetFlash(session),
	}
	session.Save(r, w)
	h.Templates.Render(w, "index.html", data)
}

func (h *HomeHandler) Product(w http.ResponseWriter, r *http.Request) {
	product, ok := lookupProduct(w, r, h.Store)
	if !ok {
		return
	}
	h.Templates.Render(w, "product.html", map[string]interface{}{
		"Product":  product,
		"Identity": h.Gate.Identity(r),
	})
}

// productID parses the {id} path segment.
func productID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	return id, err == nil
}

// lookupProduct answers 404 itself when the product is absent.
func lookupProduct(w http.ResponseWriter, r *http.Request, s *store.Store) (*models.Product, bool) {
	id, ok := productID(r)
	if !ok {
		http.Error(w, "Product not found", http.StatusNotFound)
		return nil, false
	}
	product, err := s.ProductByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Product not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		slog.Error("Failed to load product", "id", id, "error", err)
		http.Error(w, "Error fetching product", http.StatusInternalServerError)
		return nil, false
	}
	return product, true
}
