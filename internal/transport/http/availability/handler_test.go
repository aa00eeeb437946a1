package availability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap/zaptest"

	"github.com/Additional-Code/handyman/internal/config"
	"github.com/Additional-Code/handyman/internal/database/databasetest"
	daterepo "github.com/Additional-Code/handyman/internal/repository/availability"
	orderrepo "github.com/Additional-Code/handyman/internal/repository/order"
	httpserver "github.com/Additional-Code/handyman/internal/server/http"
	service "github.com/Additional-Code/handyman/internal/service/availability"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	logger := zaptest.NewLogger(t)
	cfg := config.Config{
		Admin:   config.Admin{Username: "boss", Password: "secret"},
		Booking: config.Booking{CapacityPerDay: 2, Location: time.UTC},
	}
	conns := databasetest.New(t)
	svc := service.NewService(service.Params{
		Dates:  daterepo.NewRepository(conns),
		Orders: orderrepo.NewRepository(conns),
		Config: cfg,
		Logger: logger,
	})
	e := httpserver.NewEcho(cfg, nil, logger)
	Register(httpserver.NewRouter(e, cfg), NewHandler(svc))
	return e
}

func do(t *testing.T, e *echo.Echo, method, target, body string, admin bool) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if admin {
		req.SetBasicAuth("boss", "secret")
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s %s: %v (%s)", method, target, err, rec.Body.String())
	}
	return rec.Code, env
}

func TestAdminRoutesRequireCredentials(t *testing.T) {
	e := newTestServer(t)

	code, env := do(t, e, http.MethodPost, "/api/dates", `{"date":"2099-01-02"}`, false)
	if code != http.StatusUnauthorized || env.Error.Kind != "unauthorized" {
		t.Fatalf("expected 401 envelope, got %d %+v", code, env)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/dates/all", nil)
	req.SetBasicAuth("boss", "wrong")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", rec.Code)
	}

	if code, _ := do(t, e, http.MethodGet, "/api/dates/available", "", false); code != http.StatusOK {
		t.Fatalf("public listing must stay open, got %d", code)
	}
}

func TestDateLifecycle(t *testing.T) {
	e := newTestServer(t)

	code, env := do(t, e, http.MethodPost, "/api/dates", `{"date":"2099-01-02"}`, true)
	if code != http.StatusCreated {
		t.Fatalf("create: %d %+v", code, env)
	}
	var created struct {
		ID          int64  `json:"id"`
		Date        string `json:"date"`
		IsAvailable bool   `json:"is_available"`
	}
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Date != "2099-01-02" || !created.IsAvailable {
		t.Fatalf("unexpected date %+v", created)
	}

	code, env = do(t, e, http.MethodPost, "/api/dates", `{"date":"2099-01-02"}`, true)
	if code != http.StatusBadRequest || env.Error.Kind != "conflict" {
		t.Fatalf("expected conflict as 400, got %d %+v", code, env)
	}

	code, env = do(t, e, http.MethodPost, "/api/dates/bulk?start_date=2099-01-02&end_date=2099-01-08", "", true)
	if code != http.StatusOK {
		t.Fatalf("bulk: %d %+v", code, env)
	}
	var bulk struct {
		Created int `json:"created"`
		Skipped int `json:"skipped"`
	}
	if err := json.Unmarshal(env.Data, &bulk); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if bulk.Created != 4 || bulk.Skipped != 3 {
		t.Fatalf("expected 4/3, got %+v", bulk)
	}

	code, env = do(t, e, http.MethodPost, "/api/dates/bulk", `{"start_date":"2099-01-09","end_date":"2099-01-10","skip_weekends":false}`, true)
	if code != http.StatusOK {
		t.Fatalf("bulk body: %d %+v", code, env)
	}
	if err := json.Unmarshal(env.Data, &bulk); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if bulk.Created != 2 {
		t.Fatalf("expected weekend days created from json body, got %+v", bulk)
	}

	code, _ = do(t, e, http.MethodPatch, "/api/dates/1", `{"is_available":false}`, true)
	if code != http.StatusOK {
		t.Fatalf("patch: %d", code)
	}
	code, env = do(t, e, http.MethodPatch, "/api/dates/1", `{}`, true)
	if code != http.StatusBadRequest {
		t.Fatalf("expected missing flag to be rejected, got %d %+v", code, env)
	}

	_, env = do(t, e, http.MethodGet, "/api/dates/available", "", false)
	var open []struct {
		Date string `json:"date"`
	}
	if err := json.Unmarshal(env.Data, &open); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, d := range open {
		if d.Date == "2099-01-02" {
			t.Fatalf("closed date must not be listed")
		}
	}

	if code, _ := do(t, e, http.MethodDelete, "/api/dates/1", "", true); code != http.StatusOK {
		t.Fatalf("delete: %d", code)
	}
	if code, env := do(t, e, http.MethodDelete, "/api/dates/1", "", true); code != http.StatusNotFound || env.Error.Kind != "not_found" {
		t.Fatalf("expected not found, got %d %+v", code, env)
	}
}

func TestCheckDates(t *testing.T) {
	e := newTestServer(t)

	code, env := do(t, e, http.MethodGet, "/api/orders/availability/check-dates", "", false)
	if code != http.StatusOK {
		t.Fatalf("check-dates: %d", code)
	}
	var report struct {
		OccupiedDates   []string `json:"occupied_dates"`
		MaxOrdersPerDay int      `json:"max_orders_per_day"`
	}
	if err := json.Unmarshal(env.Data, &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.MaxOrdersPerDay != 2 || report.OccupiedDates == nil || len(report.OccupiedDates) != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
}
