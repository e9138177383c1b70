// Tests for the GET helpers.
//
// Author: Ing Muyleang (អុឹង មួយលៀង) — Ing_Muyleang
package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Get_SendsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	c := New("Mozilla/5.0 test")
	resp, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	resp.Body.Close()

	if gotUA != "Mozilla/5.0 test" {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

func TestClient_Get_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := New("").Get(context.Background(), srv.URL)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Get() error = %v, want *StatusError", err)
	}
	if se.Status != http.StatusForbidden {
		t.Errorf("Status = %d, want 403", se.Status)
	}
	if se.Body != "rate limited" {
		t.Errorf("Body = %q", se.Body)
	}
}

func TestClient_GetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"name":"sing-box"}`)
	}))
	defer srv.Close()

	var v struct {
		Name string `json:"name"`
	}
	if err := New("").GetJSON(context.Background(), srv.URL, &v); err != nil {
		t.Fatalf("GetJSON() error: %v", err)
	}
	if v.Name != "sing-box" {
		t.Errorf("Name = %q", v.Name)
	}
}

func TestClient_GetJSON_Malformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html>`)
	}))
	defer srv.Close()

	var v map[string]any
	if err := New("").GetJSON(context.Background(), srv.URL, &v); err == nil {
		t.Fatal("GetJSON() should fail on non-JSON body")
	}
}
