package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/ahmedandnoor/HappyClothify/internal/models"
)

var productFields = []string{"name", "description", "price"}

func (h *AdminHandler) AddProductForm(w http.ResponseWriter, r *http.Request) {
	session := h.Gate.Session(r)
	data := map[string]interface{}{
		"Action":    "/admin/products",
		"Product":   models.Product{},
		"CsrfField": csrf.TemplateField(r),
		"Flashes":   GetFlash(session),
	}
	session.Save(r, w)
	h.Templates.Render(w, "admin_product_form.html", data)
}

// productFromForm reads the mutable product fields. The image is the
// uploaded file when one is sent, else the "image" URL field.
func (h *AdminHandler) productFromForm(r *http.Request) (models.Product, error) {
	if err := parseProductForm(r); err != nil {
		return models.Product{}, err
	}
	if missing := missingFields(r, productFields); len(missing) > 0 {
		return models.Product{}, errors.New("missing form field: " + missing[0])
	}

	p := models.Product{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
		Price:       models.Price(r.PostFormValue("price")),
		Image:       r.PostFormValue("image"),
		Link:        r.PostFormValue("link"),
	}
	uploaded, err := uploadedImage(r, h.UploadDir)
	if err != nil {
		return models.Product{}, err
	}
	if uploaded != "" {
		p.Image = uploaded
	}
	return p, nil
}

func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	session := h.Gate.Session(r)

	p, err := h.productFromForm(r)
	if err != nil {
		flashRedirect(w, r, session, "error", err.Error(), "/admin/products/new")
		return
	}
	if err := h.Store.CreateProduct(r.Context(), &p); err != nil {
		slog.Error("Failed to create product", "error", err)
		http.Error(w, "Error saving product", http.StatusInternalServerError)
		return
	}

	slog.Info("Product created", "id", p.ID, "name", p.Name)
	flashRedirect(w, r, session, "success", "Product added successfully!", "/admin")
}

func (h *AdminHandler) EditProductForm(w http.ResponseWriter, r *http.Request) {
	product, ok := lookupProduct(w, r, h.Store)
	if !ok {
		return
	}
	session := h.Gate.Session(r)
	data := map[string]interface{}{
		"Action":    "/admin/products/" + r.PathValue("id"),
		"Product":   product,
		"CsrfField": csrf.TemplateField(r),
		"Flashes":   GetFlash(session),
	}
	session.Save(r, w)
	h.Templates.Render(w, "admin_product_form.html", data)
}

// UpdateProduct silently returns to the dashboard when the product is gone.
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	session := h.Gate.Session(r)
	id, ok := productID(r)
	if !ok {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}

	p, err := h.productFromForm(r)
	if err != nil {
		flashRedirect(w, r, session, "error", err.Error(), "/admin/products/"+r.PathValue("id")+"/edit")
		return
	}
	p.ID = id

	updated, err := h.Store.UpdateProduct(r.Context(), p)
	if err != nil {
		slog.Error("Failed to update product", "id", id, "error", err)
		http.Error(w, "Error updating product", http.StatusInternalServerError)
		return
	}
	if !updated {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	flashRedirect(w, r, session, "success", "Product updated successfully!", "/admin")
}

func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	if err := h.Store.DeleteProduct(r.Context(), id); err != nil {
		slog.Error("Failed to delete product", "id", id, "error", err)
		http.Error(w, "Error deleting product", http.StatusInternalServerError)
		return
	}
	flashRedirect(w, r, h.Gate.Session(r), "success", "Product deleted.", "/admin")
}
