package authmw

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func protected(t *testing.T, token string) (http.Handler, *bool) {
	t.Helper()
	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})
	return BearerToken(token)(next), &reached
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer s3cret", http.StatusOK},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic s3cret", http.StatusUnauthorized},
		{"token without scheme", "s3cret", http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h, reached := protected(t, "s3cret")
			req := httptest.NewRequest(http.MethodGet, "/api/v1/decisions/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if wantReached := tt.wantStatus == http.StatusOK; *reached != wantReached {
				t.Errorf("handler reached = %v, want %v", *reached, wantReached)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
					t.Errorf("content type = %q, want application/json", ct)
				}
			}
		})
	}
}
