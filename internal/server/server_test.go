package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smartteam/settlement/internal/errs"
)

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, map[string]string{"id": "abc"})

	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["id"] != "abc" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestErrorShape(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusNotFound, "order gone")

	var body map[string]map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	e := body["error"]
	if e["message"] != "order gone" {
		t.Errorf("unexpected message: %v", e["message"])
	}
	if e["code"] != float64(404) {
		t.Errorf("unexpected code: %v", e["code"])
	}
}

func TestKindStatus(t *testing.T) {
	cases := map[errs.Kind]int{
		errs.KindValidation:  http.StatusBadRequest,
		errs.KindAuth:        http.StatusBadRequest,
		errs.KindNotFound:    http.StatusNotFound,
		errs.KindConflict:    http.StatusConflict,
		errs.KindGateway:     http.StatusBadGateway,
		errs.KindConsistency: http.StatusInternalServerError,
		errs.KindInternal:    http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := KindStatus(kind); got != want {
			t.Errorf("KindStatus(%s) = %d, want %d", kind, got, want)
		}
	}
}

func TestErrorFrom(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrorFrom(rec, errs.New(errs.KindNotFound, "order %s not found", "x"))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestRecovererInStack(t *testing.T) {
	srv := New(0, NewLogger(false))
	srv.Router.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 from recoverer, got %d", rec.Code)
	}
}
