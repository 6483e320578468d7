package fault

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{NotFoundf("paciente %d", 1), NotFound},
		{Conflictf("documento duplicado"), Conflict},
		{Forbiddenf("no es tu hospital"), Forbidden},
		{BadRequestf("edge inexistente"), BadRequest},
		{Unauthorizedf("token invalido"), Unauthorized},
		{errors.New("plain"), Internal},
		{nil, Internal},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Errorf("KindOf(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestKindOfWrapped(t *testing.T) {
	inner := NotFoundf("hospital 9")
	wrapped := fmt.Errorf("loading: %w", inner)
	if KindOf(wrapped) != NotFound {
		t.Errorf("wrapped fault lost its kind")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFoundf("x"), http.StatusNotFound},
		{Conflictf("x"), http.StatusBadRequest},
		{BadRequestf("x"), http.StatusBadRequest},
		{Forbiddenf("x"), http.StatusForbidden},
		{Unauthorizedf("x"), http.StatusUnauthorized},
		{errors.New("x"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("pgx: broken")
	err := Wrap(Internal, cause, "insert asignacion")
	if !errors.Is(err, cause) {
		t.Errorf("Wrap should preserve the cause chain")
	}
	if err.Error() != "insert asignacion: pgx: broken" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
