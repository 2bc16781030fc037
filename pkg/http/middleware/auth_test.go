package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestOperatorTokenRoundTrip(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	o := NewOperators("secret", time.Hour)
	o.now = func() time.Time { return now }

	tok, err := o.Issue("ops")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := o.Verify(tok)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "ops" {
		t.Fatalf("subject = %q", claims.Subject)
	}

	other := NewOperators("another", time.Hour)
	other.now = o.now
	if _, err := other.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}

	o.now = func() time.Time { return now.Add(2 * time.Hour) }
	if _, err := o.Verify(tok); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("want ErrTokenExpired, got %v", err)
	}
}

func TestRequireOperator(t *testing.T) {
	o := NewOperators("secret", time.Hour)
	tok, err := o.Issue("ops")
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name   string
		ops    *Operators
		header string
		want   int
	}{
		{"open when disabled", nil, "", http.StatusOK},
		{"missing", o, "", http.StatusUnauthorized},
		{"wrong scheme", o, "Basic " + tok, http.StatusUnauthorized},
		{"garbage", o, "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"valid", o, "Bearer " + tok, http.StatusOK},
		{"lowercase scheme", o, "bearer " + tok, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			e.POST("/x", func(c echo.Context) error {
				return c.String(http.StatusOK, "ok")
			}, RequireOperator(tc.ops))

			req := httptest.NewRequest(http.MethodPost, "/x", nil)
			if tc.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tc.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}
