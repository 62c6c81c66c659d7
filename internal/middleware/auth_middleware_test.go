package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "realitycheck/backend/internal/errors"
)

type stubParser struct {
	userID string
}

func (p stubParser) ParseToken(token string) (string, *apperrors.APIError) {
	if token != "good" {
		return "", apperrors.Unauthorized("invalid token")
	}
	return p.userID, nil
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{header: "Bearer abc", want: "abc", ok: true},
		{header: "Bearer   abc  ", want: "abc", ok: true},
		{header: "", ok: false},
		{header: "Basic abc", ok: false},
		{header: "Bearer ", ok: false},
	}

	for _, tc := range cases {
		got, apiErr := bearerToken(tc.header)
		if tc.ok {
			if apiErr != nil || got != tc.want {
				t.Fatalf("header %q: expected %q, got %q (%v)", tc.header, tc.want, got, apiErr)
			}
			continue
		}
		if apiErr == nil || apiErr.Status != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %v", tc.header, apiErr)
		}
	}
}

func TestAuthSetsUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(Auth(stubParser{userID: "user-1"}))
	engine.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK || recorder.Body.String() != "user-1" {
		t.Fatalf("expected user-1, got %d %q", recorder.Code, recorder.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer bad")
	recorder = httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
}
