package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/redsalud/coordinacion/internal/domain/fault"
)

func TestRecoveryConvertsPanic(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	handler := Recovery(zerolog.Nop())(func(c echo.Context) error {
		panic("boom")
	})
	err := handler(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 HTTPError, got %v", err)
	}
}

func TestErrorHandlerFaults(t *testing.T) {
	e := echo.New()
	handler := ErrorHandler(zerolog.Nop())

	cases := []struct {
		err        error
		wantStatus int
		wantDetail string
	}{
		{fault.NotFoundf("Paciente no encontrado"), http.StatusNotFound, "Paciente no encontrado"},
		{fault.Conflictf("documento duplicado"), http.StatusBadRequest, "documento duplicado"},
		{fault.Forbiddenf("no es tu hospital"), http.StatusForbidden, "no es tu hospital"},
		{echo.NewHTTPError(http.StatusTeapot, "tea"), http.StatusTeapot, "tea"},
		{errors.New("pg down"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		handler(tc.err, c)

		if rec.Code != tc.wantStatus {
			t.Errorf("%v: status = %d, want %d", tc.err, rec.Code, tc.wantStatus)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%v: bad body: %v", tc.err, err)
		}
		if body["detail"] != tc.wantDetail {
			t.Errorf("%v: detail = %q, want %q", tc.err, body["detail"], tc.wantDetail)
		}
	}
}

func TestErrorHandlerSkipsCommitted(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = c.NoContent(http.StatusOK)

	ErrorHandler(zerolog.Nop())(fault.NotFoundf("x"), c)
	if rec.Code != http.StatusOK {
		t.Errorf("committed response should not be overwritten, got %d", rec.Code)
	}
}
