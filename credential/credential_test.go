package credential

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/livequery/errors"
)

func signed(t *testing.T, claims gojwt.MapClaims) string {
	t.Helper()
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestCheck(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	valid := signed(t, gojwt.MapClaims{"sub": "u1", "exp": now.Add(time.Hour).Unix()})
	expired := signed(t, gojwt.MapClaims{"sub": "u1", "exp": now.Add(-time.Minute).Unix()})
	noExp := signed(t, gojwt.MapClaims{"sub": "u1"})

	tests := []struct {
		name  string
		token string
		opts  CheckOptions
		code  errors.ErrorCode
	}{
		{name: "valid jwt", token: valid},
		{name: "jwt without exp", token: noExp},
		{name: "opaque token", token: "opaque-api-token"},
		{name: "absent", token: "", code: errors.ErrCodeAuth},
		{name: "absent anonymous", token: "", opts: CheckOptions{AllowAnonymous: true}},
		{name: "expired", token: expired, code: errors.ErrCodeTokenExpired},
		{name: "expired within leeway", token: expired, opts: CheckOptions{Leeway: 2 * time.Minute}},
		{name: "malformed jwt", token: "a.b.c", code: errors.ErrCodeAuth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Now = clock
			err := Check(tt.token, tt.opts)
			if tt.code == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.HasCode(err, tt.code) {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got, ok, err := Expiry(signed(t, gojwt.MapClaims{"exp": exp.Unix()}))
	if err != nil || !ok {
		t.Fatalf("expected expiry, got ok=%v err=%v", ok, err)
	}
	if !got.Equal(exp) {
		t.Errorf("got %v, want %v", got, exp)
	}

	if _, ok, err := Expiry("opaque"); ok || err != nil {
		t.Errorf("opaque token: ok=%v err=%v", ok, err)
	}
}

func TestFetch(t *testing.T) {
	ctx := context.Background()
	valid := signed(t, gojwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})

	t.Run("passes the template", func(t *testing.T) {
		var template string
		p := TokenFunc(func(_ context.Context, opts FetchOptions) (string, error) {
			template = opts.Template
			return valid, nil
		})
		token, err := Fetch(ctx, p, FetchOptions{Template: "grafbase"}, CheckOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if token != valid || template != "grafbase" {
			t.Errorf("got token %q template %q", token, template)
		}
	})

	t.Run("strips a bearer prefix", func(t *testing.T) {
		token, err := Fetch(ctx, Static("Bearer "+valid), FetchOptions{}, CheckOptions{})
		if err != nil || token != valid {
			t.Errorf("got %q, %v", token, err)
		}
	})

	t.Run("provider failure", func(t *testing.T) {
		boom := stderrors.New("session lost")
		p := TokenFunc(func(context.Context, FetchOptions) (string, error) { return "", boom })
		_, err := Fetch(ctx, p, FetchOptions{}, CheckOptions{})
		if !errors.HasCode(err, errors.ErrCodeAuth) || !stderrors.Is(err, boom) {
			t.Errorf("expected auth error wrapping cause, got %v", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		p := TokenFunc(func(ctx context.Context, _ FetchOptions) (string, error) { return "", ctx.Err() })
		if _, err := Fetch(cctx, p, FetchOptions{}, CheckOptions{}); !stderrors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("nil provider", func(t *testing.T) {
		if _, err := Fetch(ctx, nil, FetchOptions{}, CheckOptions{}); !errors.HasCode(err, errors.ErrCodeAuth) {
			t.Errorf("expected auth error, got %v", err)
		}
		if token, err := Fetch(ctx, nil, FetchOptions{}, CheckOptions{AllowAnonymous: true}); err != nil || token != "" {
			t.Errorf("anonymous: got %q, %v", token, err)
		}
	})
}

func TestEnv(t *testing.T) {
	t.Setenv("LIVEQUERY_TEST_TOKEN", " abc ")
	token, err := Env("LIVEQUERY_TEST_TOKEN").FetchToken(context.Background(), FetchOptions{})
	if err != nil || token != "abc" {
		t.Errorf("got %q, %v", token, err)
	}
}
