package auth0

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPClient_GetUserInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"sub":"auth0|1","email":"rider@example.com","name":"Rider"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient("unused")
	c.baseURL = srv.URL

	info, err := c.GetUserInfo(context.Background(), "good")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Email != "rider@example.com" || info.Sub != "auth0|1" {
		t.Errorf("unexpected user info: %+v", info)
	}

	_, err = c.GetUserInfo(context.Background(), "bad")
	if !errors.Is(err, ErrUserInfoFailed) {
		t.Errorf("expected ErrUserInfoFailed, got %v", err)
	}
}
