package handlers

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/sessions"

	"github.com/ahmedandnoor/HappyClothify/internal/auth"
	"github.com/ahmedandnoor/HappyClothify/internal/models"
	"github.com/ahmedandnoor/HappyClothify/internal/notify"
	"github.com/ahmedandnoor/HappyClothify/internal/store"
)

type testApp struct {
	server    *httptest.Server
	store     *store.Store
	uploadDir string
	tokens    map[*http.Client]string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	driver, err := store.NewFileDriver(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileDriver failed: %v", err)
	}
	s := store.New(driver)

	cookies := sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"))
	cookies.Options.Path = "/"
	gate, err := auth.NewGate(s, cookies, "admin123", "")
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}

	templates, err := LoadTemplates(DefaultTemplates())
	if err != nil {
		t.Fatalf("template load failed: %v", err)
	}

	uploadDir := filepath.Join(t.TempDir(), "uploads")
	mux := NewRouter(Deps{Store: s, Gate: gate, Templates: templates, UploadDir: uploadDir})
	srv := httptest.NewServer(Chain(mux, gate, ChainOptions{CSRFKey: []byte("abcdefghijklmnopqrstuvwxyz012345")}))
	t.Cleanup(srv.Close)

	return &testApp{server: srv, store: s, uploadDir: uploadDir, tokens: make(map[*http.Client]string)}
}

var csrfFieldPattern = regexp.MustCompile(`name="` + CSRFFieldName + `" value="([^"]+)"`)

// token scrapes the CSRF token from a rendered form, the way a browser
// would submit it. It is fetched once per client.
func (a *testApp) token(t *testing.T, c *http.Client) string {
	t.Helper()
	if tok, ok := a.tokens[c]; ok {
		return tok
	}
	_, body := get(t, c, a.server.URL+"/register")
	m := csrfFieldPattern.FindStringSubmatch(body)
	if m == nil {
		t.Fatal("register form carries no CSRF field")
	}
	a.tokens[c] = m[1]
	return m[1]
}

// client returns a browser-like client with its own cookie jar that does
// not follow redirects.
func (a *testApp) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (a *testApp) seedProducts(t *testing.T, products ...models.Product) {
	t.Helper()
	if err := a.store.SaveProducts(context.Background(), products); err != nil {
		t.Fatal(err)
	}
}

func get(t *testing.T, c *http.Client, u string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(u)
	if err != nil {
		t.Fatalf("GET %s failed: %v", u, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

// post submits form with the client's CSRF token.
func (a *testApp) post(t *testing.T, c *http.Client, u string, form url.Values) *http.Response {
	t.Helper()
	withToken := url.Values{CSRFFieldName: {a.token(t, c)}}
	for k, v := range form {
		withToken[k] = v
	}
	return postRaw(t, c, u, withToken)
}

func postRaw(t *testing.T, c *http.Client, u string, form url.Values) *http.Response {
	t.Helper()
	resp, err := c.PostForm(u, form)
	if err != nil {
		t.Fatalf("POST %s failed: %v", u, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp
}

func expectRedirect(t *testing.T, resp *http.Response, to string) {
	t.Helper()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("%s %s: status %d, want 303", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != to {
		t.Fatalf("%s %s: redirect to %q, want %q", resp.Request.Method, resp.Request.URL.Path, loc, to)
	}
}

func (a *testApp) loginCustomer(t *testing.T, c *http.Client, username, password string) {
	t.Helper()
	resp := a.post(t, c, a.server.URL+"/login", url.Values{"username": {username}, "password": {password}})
	expectRedirect(t, resp, "/")
}

func (a *testApp) loginAdmin(t *testing.T, c *http.Client) {
	t.Helper()
	resp := a.post(t, c, a.server.URL+"/admin/login", url.Values{"password": {"admin123"}})
	expectRedirect(t, resp, "/admin")
}

var widget = models.Product{ID: 2, Name: "Widget", Description: "A widget", Price: "9.99", Image: "https://img/widget.png", Link: "https://shop/widget"}

func TestCheckoutEndToEnd(t *testing.T) {
	app := newTestApp(t)
	app.seedProducts(t, widget)
	c := app.client(t)
	base := app.server.URL

	resp := app.post(t, c, base+"/register", url.Values{
		"username": {"alice"}, "email": {"alice@example.com"}, "password": {"pw"}, "whatsapp": {"+1555"},
	})
	expectRedirect(t, resp, "/login")
	app.loginCustomer(t, c, "alice", "pw")

	resp, body := get(t, c, base+"/")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Widget") || !strings.Contains(body, "alice") {
		t.Fatalf("index: status %d, body missing product or user", resp.StatusCode)
	}
	resp, body = get(t, c, base+"/product/2")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "9.99") {
		t.Fatalf("product page: status %d", resp.StatusCode)
	}

	resp, _ = get(t, c, base+"/cash_on_delivery/2")
	expectRedirect(t, resp, "/address/2?from=cod")
	resp, body = get(t, c, base+"/address/2?from=cod")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `action="/address/2"`) {
		t.Fatalf("address form: status %d", resp.StatusCode)
	}

	resp = app.post(t, c, base+"/address/2", url.Values{"city": {"Springfield"}, "province": {"IL"}})
	expectRedirect(t, resp, "/order_confirmation")

	orders, err := app.store.Orders(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	got := orders[0]
	if got.Username != "alice" || got.WhatsApp != "+1555" {
		t.Errorf("order not bound to customer: %+v", got)
	}
	if diff := cmp.Diff(widget, got.Product); diff != "" {
		t.Errorf("product snapshot mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(models.Address{"city": "Springfield", "province": "IL"}, got.Address); diff != "" {
		t.Errorf("address mismatch (-want +got):\n%s", diff)
	}
	if _, ok := got.Address[CSRFFieldName]; ok {
		t.Error("CSRF token leaked into the stored address")
	}
	if _, err := time.Parse(models.TimestampLayout, got.Timestamp); err != nil {
		t.Errorf("timestamp %q not in layout: %v", got.Timestamp, err)
	}

	var (
		mu       sync.Mutex
		messages []string
	)
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		messages = append(messages, string(data))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer sink.Close()

	watcher := notify.NewWatcher(app.store, notify.NewWebhookNotifier(sink.URL, time.Second), time.Second, nil)
	if _, err := watcher.Poll(context.Background()); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	watcher.Poll(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(messages) != 1 {
		t.Fatalf("expected exactly 1 webhook message, got %d", len(messages))
	}
	for _, want := range []string{"Widget", "9.99", "Springfield", "IL", "alice", "+1555"} {
		if !strings.Contains(messages[0], want) {
			t.Errorf("webhook message missing %q: %s", want, messages[0])
		}
	}
}

func TestDirectPayFlow(t *testing.T) {
	app := newTestApp(t)
	app.seedProducts(t, widget)
	app.store.AppendUser(context.Background(), models.User{Username: "bob", Password: "pw", WhatsApp: "+44"})
	c := app.client(t)
	app.loginCustomer(t, c, "bob", "pw")

	resp, body := get(t, c, app.server.URL+"/direct_pay/2")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `action="/payment/2"`) {
		t.Fatalf("payment page: status %d", resp.StatusCode)
	}
	resp = app.post(t, c, app.server.URL+"/payment/2", url.Values{"card_number": {"4242"}})
	expectRedirect(t, resp, "/address/2?from=pay")
}

func TestCheckoutRequiresCustomer(t *testing.T) {
	app := newTestApp(t)
	app.seedProducts(t, widget)
	c := app.client(t)

	for _, path := range []string{"/cash_on_delivery/2", "/direct_pay/2", "/address/2"} {
		resp, _ := get(t, c, app.server.URL+path)
		expectRedirect(t, resp, "/login")
	}
	resp := app.post(t, c, app.server.URL+"/address/2", url.Values{"city": {"Springfield"}})
	expectRedirect(t, resp, "/login")

	orders, _ := app.store.Orders(context.Background())
	if len(orders) != 0 {
		t.Errorf("anonymous checkout recorded %d orders", len(orders))
	}
}

func TestProductNotFound(t *testing.T) {
	app := newTestApp(t)
	app.seedProducts(t, widget)
	c := app.client(t)

	for _, path := range []string{"/product/99", "/product/abc"} {
		resp, _ := get(t, c, app.server.URL+path)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s: status %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestInvalidLoginKeepsIdentity(t *testing.T) {
	app := newTestApp(t)
	app.seedProducts(t, widget)
	app.store.AppendUser(context.Background(), models.User{Username: "alice", Password: "pw"})
	c := app.client(t)

	resp := app.post(t, c, app.server.URL+"/login", url.Values{"username": {"alice"}, "password": {"nope"}})
	expectRedirect(t, resp, "/login")
	_, body := get(t, c, app.server.URL+"/login")
	if !strings.Contains(body, "Invalid credentials") {
		t.Error("expected invalid credentials flash")
	}

	resp, _ = get(t, c, app.server.URL+"/cash_on_delivery/2")
	expectRedirect(t, resp, "/login")
}

func TestLogoutClearsIdentity(t *testing.T) {
	app := newTestApp(t)
	app.seedProducts(t, widget)
	app.store.AppendUser(context.Background(), models.User{Username: "alice", Password: "pw"})
	c := app.client(t)
	app.loginCustomer(t, c, "alice", "pw")
	app.loginAdmin(t, c)

	resp, _ := get(t, c, app.server.URL+"/logout")
	expectRedirect(t, resp, "/")

	resp, _ = get(t, c, app.server.URL+"/cash_on_delivery/2")
	expectRedirect(t, resp, "/login")
	resp, _ = get(t, c, app.server.URL+"/admin")
	expectRedirect(t, resp, "/admin/login")
}

func TestRegisterRequiresAllFields(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	resp := app.post(t, c, app.server.URL+"/register", url.Values{"username": {"x"}, "password": {"y"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status %d, want 400", resp.StatusCode)
	}
	users, _ := app.store.Users(context.Background())
	if len(users) != 0 {
		t.Errorf("partial registration stored %d users", len(users))
	}
}

func TestAdminGuard(t *testing.T) {
	app := newTestApp(t)
	app.seedProducts(t, widget)
	app.store.AppendUser(context.Background(), models.User{Username: "alice", Password: "pw"})
	c := app.client(t)
	app.loginCustomer(t, c, "alice", "pw")

	for _, path := range []string{"/admin", "/admin/orders", "/admin/users", "/admin/products/new", "/admin/products/2/edit"} {
		resp, _ := get(t, c, app.server.URL+path)
		expectRedirect(t, resp, "/admin/login")
	}
	resp := app.post(t, c, app.server.URL+"/admin/products/2/delete", nil)
	expectRedirect(t, resp, "/admin/login")
	resp = app.post(t, c, app.server.URL+"/admin/users/0/delete", nil)
	expectRedirect(t, resp, "/admin/login")

	products, _ := app.store.Products(context.Background())
	users, _ := app.store.Users(context.Background())
	if len(products) != 1 || len(users) != 1 {
		t.Errorf("guarded routes mutated data: %d products, %d users", len(products), len(users))
	}

	resp = app.post(t, c, app.server.URL+"/admin/login", url.Values{"password": {"wrong"}})
	expectRedirect(t, resp, "/admin/login")
	_, body := get(t, c, app.server.URL+"/admin/login")
	if !strings.Contains(body, "Incorrect Password") {
		t.Error("expected incorrect password flash")
	}
}

func TestAdminProductLifecycle(t *testing.T) {
	app := newTestApp(t)
	app.seedProducts(t, widget)
	c := app.client(t)
	app.loginAdmin(t, c)
	base := app.server.URL
	ctx := context.Background()

	resp := app.post(t, c, base+"/admin/products", url.Values{
		"name": {"Gadget"}, "description": {"Shiny"}, "price": {"5"}, "image": {"https://img/g.png"},
	})
	expectRedirect(t, resp, "/admin")
	created, err := app.store.ProductByID(ctx, 3)
	if err != nil {
		t.Fatalf("expected product 3 after create: %v", err)
	}
	if created.Name != "Gadget" || created.Link != "" {
		t.Errorf("unexpected created product: %+v", created)
	}

	resp = app.post(t, c, base+"/admin/products", url.Values{"name": {"No price"}})
	expectRedirect(t, resp, "/admin/products/new")

	resp, body := get(t, c, base+"/admin/products/3/edit")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Gadget") {
		t.Fatalf("edit form: status %d", resp.StatusCode)
	}
	resp, _ = get(t, c, base+"/admin/products/42/edit")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("edit of missing product: status %d, want 404", resp.StatusCode)
	}

	resp = app.post(t, c, base+"/admin/products/3", url.Values{
		"name": {"Gadget Pro"}, "description": {"Shinier"}, "price": {"7.50"}, "image": {"https://img/g.png"}, "link": {"https://shop/g"},
	})
	expectRedirect(t, resp, "/admin")
	updated, _ := app.store.ProductByID(ctx, 3)
	if updated.Name != "Gadget Pro" || updated.Price != "7.50" || updated.ID != 3 {
		t.Errorf("update not applied: %+v", updated)
	}

	resp = app.post(t, c, base+"/admin/products/42", url.Values{
		"name": {"Ghost"}, "description": {"-"}, "price": {"1"}, "image": {"x"},
	})
	expectRedirect(t, resp, "/admin")
	if _, err := app.store.ProductByID(ctx, 42); err == nil {
		t.Error("update of missing product must not create it")
	}

	resp, body = get(t, c, base+"/admin")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Gadget Pro") {
		t.Fatalf("dashboard: status %d", resp.StatusCode)
	}

	resp = app.post(t, c, base+"/admin/products/3/delete", nil)
	expectRedirect(t, resp, "/admin")
	products, _ := app.store.Products(ctx)
	if len(products) != 1 || products[0].ID != 2 {
		t.Errorf("unexpected products after delete: %+v", products)
	}
}

func TestAdminPositionalDelete(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		app.store.AppendOrder(ctx, models.Order{Username: name, Timestamp: name})
		app.store.AppendUser(ctx, models.User{Username: name})
	}
	c := app.client(t)
	app.loginAdmin(t, c)

	resp, body := get(t, c, app.server.URL+"/admin/orders")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `/admin/orders/1/delete`) {
		t.Fatalf("orders page: status %d", resp.StatusCode)
	}

	expectRedirect(t, app.post(t, c, app.server.URL+"/admin/orders/1/delete", nil), "/admin/orders")
	expectRedirect(t, app.post(t, c, app.server.URL+"/admin/orders/9/delete", nil), "/admin/orders")
	expectRedirect(t, app.post(t, c, app.server.URL+"/admin/users/0/delete", nil), "/admin/users")

	orders, _ := app.store.Orders(ctx)
	users, _ := app.store.Users(ctx)
	var orderNames, userNames []string
	for _, o := range orders {
		orderNames = append(orderNames, o.Username)
	}
	for _, u := range users {
		userNames = append(userNames, u.Username)
	}
	if diff := cmp.Diff([]string{"a", "c"}, orderNames); diff != "" {
		t.Errorf("orders after delete (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b", "c"}, userNames); diff != "" {
		t.Errorf("users after delete (-want +got):\n%s", diff)
	}

	resp, _ = get(t, c, app.server.URL+"/admin/users")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("users page: status %d", resp.StatusCode)
	}
}

func TestAdminImageUpload(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)
	app.loginAdmin(t, c)

	var img bytes.Buffer
	if err := png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 1200, 600))); err != nil {
		t.Fatal(err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range map[string]string{"name": "Poster", "description": "Big", "price": "12", CSRFFieldName: app.token(t, c)} {
		mw.WriteField(k, v)
	}
	part, _ := mw.CreateFormFile("image_file", "poster.png")
	part.Write(img.Bytes())
	mw.Close()

	resp, err := c.Post(app.server.URL+"/admin/products", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	expectRedirect(t, resp, "/admin")

	p, err := app.store.ProductByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("product not created: %v", err)
	}
	if !strings.HasPrefix(p.Image, "/static/uploads/") || !strings.HasSuffix(p.Image, ".jpg") {
		t.Fatalf("unexpected image path %q", p.Image)
	}

	f, err := os.Open(filepath.Join(app.uploadDir, strings.TrimPrefix(p.Image, "/static/uploads/")))
	if err != nil {
		t.Fatalf("uploaded file missing: %v", err)
	}
	defer f.Close()
	stored, err := jpeg.DecodeConfig(f)
	if err != nil {
		t.Fatalf("stored image is not a jpeg: %v", err)
	}
	if stored.Width != 800 || stored.Height != 400 {
		t.Errorf("stored image is %dx%d, want 800x400", stored.Width, stored.Height)
	}
}

func TestSecurityHeaders(t *testing.T) {
	app := newTestApp(t)
	resp, _ := get(t, app.client(t), app.server.URL+"/")
	if resp.Header.Get("X-Frame-Options") != "DENY" || resp.Header.Get("Content-Security-Policy") == "" {
		t.Errorf("security headers missing: %v", resp.Header)
	}
}

func TestFormsRequireCSRFToken(t *testing.T) {
	app := newTestApp(t)
	app.seedProducts(t, widget)
	c := app.client(t)
	app.token(t, c)

	resp := postRaw(t, c, app.server.URL+"/register", url.Values{
		"username": {"eve"}, "email": {"e@example.com"}, "password": {"pw"}, "whatsapp": {"+1"},
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("POST without token: status %d, want 403", resp.StatusCode)
	}
	resp = postRaw(t, c, app.server.URL+"/admin/login", url.Values{"password": {"admin123"}, CSRFFieldName: {"forged"}})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("POST with forged token: status %d, want 403", resp.StatusCode)
	}

	users, _ := app.store.Users(context.Background())
	if len(users) != 0 {
		t.Errorf("rejected form still stored %d users", len(users))
	}
	resp, _ = get(t, c, app.server.URL+"/admin")
	expectRedirect(t, resp, "/admin/login")
}

func TestFormatPrice(t *testing.T) {
	tests := map[models.Price]string{
		"9.99":  "$9.99",
		"$9.99": "$9.99",
		" 12 ":  "$12",
		"":      "-",
		"call":  "$call",
	}
	for in, want := range tests {
		if got := formatPrice(in); got != want {
			t.Errorf("formatPrice(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUploadRejectsUnreadableImage(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)
	app.loginAdmin(t, c)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range map[string]string{"name": "Poster", "description": "Big", "price": "12", CSRFFieldName: app.token(t, c)} {
		mw.WriteField(k, v)
	}
	part, _ := mw.CreateFormFile("image_file", "poster.png")
	part.Write([]byte("not a png"))
	mw.Close()

	resp, err := c.Post(app.server.URL+"/admin/products", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	expectRedirect(t, resp, "/admin/products/new")

	products, _ := app.store.Products(context.Background())
	if len(products) != 0 {
		t.Errorf("product created despite bad image: %+v", products)
	}
	entries, _ := os.ReadDir(app.uploadDir)
	if len(entries) != 0 {
		t.Errorf("upload dir not empty: %v", entries)
	}
}

func TestWriteJPEGRemovesFileOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.jpg")
	// jpeg refuses dimensions of 1<<16 or more.
	img := image.NewGray(image.Rect(0, 0, 1<<16, 1))
	if err := writeJPEG(path, img); err == nil {
		t.Fatal("expected encode error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("partial file left behind: %v", err)
	}
}
