package tools_test

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/a2y-d5l/rote/tools"
)

func TestIsPortOpenWithOpenPort(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()
	port := listener.Addr().(*net.TCPAddr).Port

	if err := tools.IsPortOpen(port); err != nil {
		t.Errorf("expected open port, got error: %v", err)
	}
}

func TestIsPortOpenWithClosedPort(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	if err := tools.IsPortOpen(port); err == nil {
		t.Error("expected error for closed port")
	}
}

func TestHTTPGetSucceedsForAnyStatus(t *testing.T) {
	for _, status := range []int{200, 404, 500} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		err := tools.HTTPGet(srv.URL)
		srv.Close()
		if err != nil {
			t.Errorf("status %d: expected success, got %v", status, err)
		}
	}
}

func TestHTTPGetConnectionRefused(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	if err := tools.HTTPGet(fmt.Sprintf("http://127.0.0.1:%d/", port)); err == nil {
		t.Error("expected connection-refused error")
	}
}

func TestHTTPGetOkSucceedsOn2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	defer srv.Close()

	if err := tools.HTTPGetOk(srv.URL); err != nil {
		t.Errorf("expected success, got %v", err)
	}
}

func TestHTTPGetOkFailsOn404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
	}))
	defer srv.Close()

	err := tools.HTTPGetOk(srv.URL)
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if got := err.Error(); !strings.Contains(got, "404") {
		t.Errorf("expected error to mention status code, got %q", got)
	}
}

func TestHTTPGetOkFailsOn500(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer srv.Close()

	if err := tools.HTTPGetOk(srv.URL); err == nil {
		t.Error("expected error for 500")
	}
}

func TestHTTPGetOkConnectionRefused(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	if err := tools.HTTPGetOk(fmt.Sprintf("http://127.0.0.1:%d/", port)); err == nil {
		t.Error("expected connection-refused error")
	}
}
