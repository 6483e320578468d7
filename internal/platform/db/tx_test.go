package db

import (
	"context"
	"testing"
)

func TestTxFromContextEmpty(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Errorf("expected nil tx from empty context")
	}
}

func TestConnFromContextEmpty(t *testing.T) {
	if conn := ConnFromContext(context.Background()); conn != nil {
		t.Errorf("expected nil conn from empty context")
	}
}

func TestTenantFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), TenantIDKey, "clinica_norte")
	if got := TenantFromContext(ctx); got != "clinica_norte" {
		t.Errorf("TenantFromContext = %q", got)
	}
	if got := TenantFromContext(context.Background()); got != "" {
		t.Errorf("empty context should yield empty tenant, got %q", got)
	}
}

func TestPassthroughRunner(t *testing.T) {
	called := false
	err := PassthroughRunner()(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Errorf("passthrough runner should invoke fn, err=%v called=%v", err, called)
	}
}
