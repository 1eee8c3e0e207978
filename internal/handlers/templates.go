package handlers

import (
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/ahmedandnoor/HappyClothify/internal/models"
)

//go:embed templates/*.html
var defaultTemplates embed.FS

// DefaultTemplates are the pages built into the binary.
func DefaultTemplates() fs.FS {
	sub, err := fs.Sub(defaultTemplates, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// TemplateCache holds parsed templates
type TemplateCache struct {
	cache map[string]*template.Template
	mu    sync.RWMutex
	funcs template.FuncMap
}

func NewTemplateCache() *TemplateCache {
	return &TemplateCache{
		cache: make(map[string]*template.Template),
		funcs: make(template.FuncMap),
	}
}

// LoadTemplates registers the shop's template helpers and parses fsys.
func LoadTemplates(fsys fs.FS) (*TemplateCache, error) {
	tc := NewTemplateCache()
	tc.AddFunc("price", formatPrice)
	if err := tc.Load(fsys); err != nil {
		return nil, err
	}
	return tc, nil
}

// formatPrice shows a free-text price with exactly one leading "$". Admins
// type prices both with and without the sign.
func formatPrice(p models.Price) string {
	s := strings.TrimSpace(p.String())
	if s == "" {
		return "-"
	}
	return "$" + strings.TrimPrefix(s, "$")
}

func (tc *TemplateCache) AddFunc(name string, fn interface{}) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.funcs[name] = fn
}

// Load parses every *.html file at the root of fsys, one template per file.
func (tc *TemplateCache) Load(fsys fs.FS) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	files, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return err
	}
	for _, name := range files {
		tmpl, err := template.New(name).Funcs(tc.funcs).ParseFS(fsys, name)
		if err != nil {
			slog.Error("Failed to parse template", "file", name, "error", err)
			return err
		}
		tc.cache[name] = tmpl
		slog.Debug("Cached template", "name", name)
	}
	return nil
}

func (tc *TemplateCache) Get(name string) *template.Template {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.cache[name]
}

// Render executes the named template, or answers 500 when it is missing.
func (tc *TemplateCache) Render(w http.ResponseWriter, name string, data map[string]interface{}) {
	tmpl := tc.Get(name)
	if tmpl == nil {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		slog.Error("Failed to render template", "name", name, "error", err)
	}
}
