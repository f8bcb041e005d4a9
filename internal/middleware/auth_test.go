// DamifeZion | 2026
// auth_test.go

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DamifeZion/new-replay/internal/core"
)

type fakeVerifier struct {
	claims *AccessClaims
	err    error
}

func (f *fakeVerifier) VerifyAccessToken(
	_ context.Context,
	_ string,
) (*AccessClaims, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.claims, nil
}

func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		core.OK(w, map[string]string{
			"user_id": GetUserID(r.Context()),
			"email":   GetUserEmail(r.Context()),
		})
	})
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	return envelope.Error.Code
}

func TestAuthenticator(t *testing.T) {
	claims := &AccessClaims{
		UserID: "user-1",
		Name:   "Jane Doe",
		Email:  "jane@example.com",
	}

	t.Run("populates identity on valid token", func(t *testing.T) {
		handler := Authenticator(&fakeVerifier{claims: claims})(echoIdentity())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer some-token")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var envelope struct {
			Data map[string]string `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("unmarshal body: %v", err)
		}
		if envelope.Data["user_id"] != "user-1" {
			t.Errorf("user_id = %q, want user-1", envelope.Data["user_id"])
		}
		if envelope.Data["email"] != "jane@example.com" {
			t.Errorf("email = %q", envelope.Data["email"])
		}
	})

	t.Run("rejects missing header", func(t *testing.T) {
		handler := Authenticator(&fakeVerifier{claims: claims})(echoIdentity())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("maps expired token", func(t *testing.T) {
		handler := Authenticator(&fakeVerifier{err: core.ErrTokenExpired})(echoIdentity())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer stale-token")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		if code := errorCode(t, rec.Body.Bytes()); code != "TOKEN_EXPIRED" {
			t.Errorf("code = %q, want TOKEN_EXPIRED", code)
		}
	})

	t.Run("maps invalid token", func(t *testing.T) {
		handler := Authenticator(&fakeVerifier{err: core.ErrTokenInvalid})(echoIdentity())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if code := errorCode(t, rec.Body.Bytes()); code != "TOKEN_INVALID" {
			t.Errorf("code = %q, want TOKEN_INVALID", code)
		}
	})
}

func TestOptionalAuth(t *testing.T) {
	t.Run("passes through without a token", func(t *testing.T) {
		handler := OptionalAuth(&fakeVerifier{})(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				if IsAuthenticated(r.Context()) {
					t.Error("anonymous request reported as authenticated")
				}
				w.WriteHeader(http.StatusOK)
			},
		))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("attaches identity when the token checks out", func(t *testing.T) {
		verifier := &fakeVerifier{claims: &AccessClaims{UserID: "user-1"}}
		handler := OptionalAuth(verifier)(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				if GetUserID(r.Context()) != "user-1" {
					t.Error("identity not attached")
				}
				w.WriteHeader(http.StatusOK)
			},
		))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
	})
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"no header", "", ""},
		{"bearer token", "Bearer abc123", "abc123"},
		{"case insensitive scheme", "bearer abc123", "abc123"},
		{"wrong scheme", "Basic abc123", ""},
		{"scheme only", "Bearer", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			if got := ExtractToken(req); got != tt.want {
				t.Errorf("ExtractToken = %q, want %q", got, tt.want)
			}
		})
	}
}
