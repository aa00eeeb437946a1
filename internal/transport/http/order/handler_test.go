package order

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap/zaptest"

	"github.com/Additional-Code/handyman/internal/cache"
	"github.com/Additional-Code/handyman/internal/config"
	"github.com/Additional-Code/handyman/internal/database/databasetest"
	"github.com/Additional-Code/handyman/internal/notification"
	orderrepo "github.com/Additional-Code/handyman/internal/repository/order"
	verifyrepo "github.com/Additional-Code/handyman/internal/repository/verification"
	httpserver "github.com/Additional-Code/handyman/internal/server/http"
	service "github.com/Additional-Code/handyman/internal/service/order"
	verifysvc "github.com/Additional-Code/handyman/internal/service/verification"
	"github.com/Additional-Code/handyman/internal/sms"
	"github.com/Additional-Code/handyman/internal/storage"
)

const phone = "+48123456789"

type quietNotifier struct{}

func (quietNotifier) OrderCreated(context.Context, notification.OrderCreated)   {}
func (quietNotifier) StatusChanged(context.Context, notification.StatusChanged) {}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

type orderBody struct {
	ID        int64      `json:"id"`
	Phone     string     `json:"phone"`
	Photos    []string   `json:"photos"`
	Status    string     `json:"status"`
	UpdatedAt *time.Time `json:"updated_at"`
}

func newTestServer(t *testing.T) (*echo.Echo, *verifysvc.Service) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	cfg := config.Config{
		Cache:   config.Cache{Driver: "noop"},
		Admin:   config.Admin{Username: "boss", Password: "secret"},
		Booking: config.Booking{MaxOrdersPerPhone: 2, CapacityPerDay: 2, Location: time.UTC},
		SMS:     config.SMS{CodeLength: 6, CodeTTL: 10 * time.Minute, DevFallback: true},
		Upload: config.Upload{
			Dir:               t.TempDir(),
			MaxFileSize:       1 << 20,
			AllowedExtensions: []string{"jpg", "jpeg", "png", "gif", "webp"},
			MaxPhotos:         5,
		},
	}
	conns := databasetest.New(t)

	verifier := verifysvc.NewService(verifysvc.Params{
		Repository: verifyrepo.NewRepository(conns),
		Sender:     sms.Disabled{},
		Config:     cfg,
		Logger:     logger,
	})
	store, err := cache.NewStore(fxtest.NewLifecycle(t), cfg, logger)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	files, err := storage.NewLocal(cfg, logger)
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	svc := service.NewService(service.Params{
		Repository: orderrepo.NewRepository(conns),
		Verifier:   verifier,
		Files:      files,
		Notifier:   quietNotifier{},
		Cache:      store,
		Config:     cfg,
		Logger:     logger,
	})

	e := httpserver.NewEcho(cfg, nil, logger)
	Register(httpserver.NewRouter(e, cfg), NewHandler(svc))
	return e, verifier
}

func verify(t *testing.T, v *verifysvc.Service) {
	t.Helper()
	ctx := context.Background()
	res, err := v.Issue(ctx, phone)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := v.Confirm(ctx, phone, res.Code); err != nil {
		t.Fatalf("confirm: %v", err)
	}
}

func multipartOrder(t *testing.T, field string, photos int) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := map[string]string{
		"phone":         phone,
		"address":       "ul. Długa 1, Gdańsk",
		"description":   "Leaking kitchen tap needs replacing",
		"selected_date": "2030-01-10",
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < photos; i++ {
		part, err := w.CreateFormFile(field, "photo.png")
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(part, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func serve(t *testing.T, e *echo.Echo, req *http.Request, admin bool) (int, envelope) {
	t.Helper()
	if admin {
		req.SetBasicAuth("boss", "secret")
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v (%s)", err, rec.Body.String())
	}
	return rec.Code, env
}

func TestCreateRequiresVerification(t *testing.T) {
	e, _ := newTestServer(t)

	body, contentType := multipartOrder(t, "files", 0)
	req := httptest.NewRequest(http.MethodPost, "/api/orders", body)
	req.Header.Set(echo.HeaderContentType, contentType)

	code, env := serve(t, e, req, false)
	if code != http.StatusBadRequest || env.Error.Kind != "conflict" {
		t.Fatalf("expected conflict, got %d %+v", code, env)
	}
}

func TestOrderLifecycle(t *testing.T) {
	e, verifier := newTestServer(t)
	verify(t, verifier)

	body, contentType := multipartOrder(t, "photos", 2)
	req := httptest.NewRequest(http.MethodPost, "/api/orders", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	code, env := serve(t, e, req, false)
	if code != http.StatusCreated {
		t.Fatalf("create: %d %+v", code, env)
	}
	var created orderBody
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Status != "new" || len(created.Photos) != 2 || created.UpdatedAt != nil {
		t.Fatalf("unexpected order %+v", created)
	}

	form := url.Values{
		"phone":         {phone},
		"address":       {"ul. Krótka 2, Gdańsk"},
		"description":   {"Door hinge squeaks loudly"},
		"selected_date": {"2030-01-11"},
	}
	req = httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	if code, env := serve(t, e, req, false); code != http.StatusCreated {
		t.Fatalf("create without photos: %d %+v", code, env)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	if code, _ := serve(t, e, req, false); code != http.StatusUnauthorized {
		t.Fatalf("listing must require admin, got %d", code)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/orders?status=new", nil)
	code, env = serve(t, e, req, true)
	if code != http.StatusOK {
		t.Fatalf("list: %d", code)
	}
	var listed []orderBody
	if err := json.Unmarshal(env.Data, &listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed) != 2 || listed[1].ID != created.ID || listed[0].Photos == nil {
		t.Fatalf("unexpected listing %+v", listed)
	}

	req = httptest.NewRequest(http.MethodPatch, "/api/orders/1/status", strings.NewReader(`{"status":"in_progress"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	code, env = serve(t, e, req, true)
	if code != http.StatusOK {
		t.Fatalf("patch: %d %+v", code, env)
	}
	var patched orderBody
	if err := json.Unmarshal(env.Data, &patched); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if patched.Status != "in_progress" || patched.UpdatedAt == nil {
		t.Fatalf("unexpected patched order %+v", patched)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/orders/1", nil)
	code, env = serve(t, e, req, true)
	if code != http.StatusOK {
		t.Fatalf("delete: %d %+v", code, env)
	}
	var deleted struct {
		FilesDeleted int `json:"files_deleted"`
		FilesFailed  int `json:"files_failed"`
	}
	if err := json.Unmarshal(env.Data, &deleted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if deleted.FilesDeleted != 2 || deleted.FilesFailed != 0 {
		t.Fatalf("unexpected delete result %+v", deleted)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/orders/1", nil)
	if code, env := serve(t, e, req, true); code != http.StatusNotFound || env.Error.Kind != "not_found" {
		t.Fatalf("expected not found, got %d %+v", code, env)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/orders/abc", nil)
	if code, _ := serve(t, e, req, true); code != http.StatusBadRequest {
		t.Fatalf("expected bad id to be rejected, got %d", code)
	}
}
