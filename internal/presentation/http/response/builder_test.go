package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/handyman/pkg/errorbank"
)

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	return e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec), rec
}

func TestBuildSuccess(t *testing.T) {
	c, rec := newContext()
	if err := New(c).Created(map[string]int{"id": 7}).WithTotal(1).Build(); err != nil {
		t.Fatalf("build: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var body struct {
		Success bool           `json:"success"`
		Data    map[string]int `json:"data"`
		Meta    map[string]any `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Data["id"] != 7 || body.Meta["total"] != float64(1) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestBuildError(t *testing.T) {
	c, rec := newContext()
	c.Response().Header().Set(echo.HeaderXRequestID, "req-1")

	err := errorbank.Conflict("phone number is not verified")
	if buildErr := New(c).WithError(err).Build(); buildErr != nil {
		t.Fatalf("build: %v", buildErr)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected conflict to render as 400, got %d", rec.Code)
	}
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		} `json:"error"`
		Meta map[string]any `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success || body.Error.Kind != "conflict" || body.Error.Message != "phone number is not verified" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if body.Meta["request_id"] != "req-1" {
		t.Fatalf("expected request id in meta, got %v", body.Meta)
	}
	if _, ok := c.Get(ErrorKey).(*errorbank.AppError); !ok {
		t.Fatalf("expected rendered error to be stored on the context")
	}
}

func TestBuildPlainErrorIsInternal(t *testing.T) {
	c, rec := newContext()
	_ = New(c).WithError(errors.New("boom")).Build()
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
