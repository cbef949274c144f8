package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func parseJSON(r *http.Response, a any) error {
	dec := json.NewDecoder(r.Body)
	if r.StatusCode < 400 {
		return dec.Decode(a)
	}
	var v struct{ Message string }
	if err := dec.Decode(&v); err != nil {
		return err
	}
	return errors.New(v.Message)
}

func TestRequestJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" || r.Header.Get("X-Token") != "t" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"message": "bad headers"}`)
			return
		}
		var in map[string]string
		json.NewDecoder(r.Body).Decode(&in)
		json.NewEncoder(w).Encode(map[string]string{"path": r.URL.Path, "name": in["name"]})
	}))
	defer srv.Close()

	c := MustClient(Option{ParseResponse: parseJSON, BaseURL: srv.URL + "/"})
	var out map[string]string
	err := c.Post("/items/%d", 7).
		Header("X-Token", "t").
		Body(map[string]string{"name": "x"}).
		Do(context.Background(), &out)
	if err != nil {
		t.Fatal(err)
	}
	if out["path"] != "/items/7" || out["name"] != "x" {
		t.Fatalf("unexpected response %v", out)
	}
}

func TestRequestForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		json.NewEncoder(w).Encode(map[string]string{
			"ct":   r.Header.Get("Content-Type"),
			"bpmn": r.PostForm.Get("bpmnXml"),
		})
	}))
	defer srv.Close()

	c := MustClient(Option{ParseResponse: parseJSON, BaseURL: srv.URL})
	var out map[string]string
	if err := c.Post("/map").Body(url.Values{"bpmnXml": {"<xml/>"}}).Do(context.Background(), &out); err != nil {
		t.Fatal(err)
	}
	if out["ct"] != "application/x-www-form-urlencoded" || out["bpmn"] != "<xml/>" {
		t.Fatalf("unexpected response %v", out)
	}
}

func TestRequestResponseErr(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	}))
	defer srv.Close()

	c := MustClient(Option{ParseResponse: parseJSON, BaseURL: srv.URL})
	err := c.Get("/missing").Do(context.Background(), nil)
	if err == nil || err.Error() != "Not Found" {
		t.Fatalf("want Not Found, got %v", err)
	}
}

func TestBreakerOpens(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"message": "unavailable"}`)
	}))
	defer srv.Close()

	c := MustClient(Option{
		ParseResponse: parseJSON,
		BaseURL:       srv.URL,
		BreakerSetting: &gobreaker.Settings{
			Name:    "test",
			Timeout: time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 2
			},
		},
	})
	for i := 0; i < 2; i++ {
		if err := c.Get("/").Do(context.Background(), nil); err == nil || err.Error() != "unavailable" {
			t.Fatalf("want backend message, got %v", err)
		}
	}
	err := c.Get("/").Do(context.Background(), nil)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("want open state, got %v", err)
	}
	if hits != 2 {
		t.Fatalf("want 2 backend hits, got %d", hits)
	}
}

func TestNewClientRequiresParser(t *testing.T) {
	if _, err := NewClient(Option{}); err == nil {
		t.Fatal("want error without ParseResponse")
	}
}
