package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"
)

func get(t *testing.T, client *http.Client, target string) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, target, nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestNewClientSkipsCertificateVerification(t *testing.T) {
	t.Parallel()

	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client, err := NewClient(Options{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	resp := get(t, client, server.URL)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	// The default client must still reject the self-signed certificate.
	if _, err := http.Get(server.URL); err == nil { //nolint:noctx // test only
		t.Error("expected default client to reject self-signed certificate")
	}
}

func TestNewClientInjectsHeaders(t *testing.T) {
	t.Parallel()

	received := make(chan http.Header, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client, err := NewClient(Options{
		Timeout: 5 * time.Second,
		Headers: http.Header{"X-Test": {"value"}},
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	resp := get(t, client, server.URL)
	got := <-received
	if gotUA := got.Get("User-Agent"); gotUA != DefaultUserAgent {
		t.Errorf("User-Agent = %q, want default", gotUA)
	}
	if gotCustom := got.Get("X-Test"); gotCustom != "value" {
		t.Errorf("X-Test = %q, want value", gotCustom)
	}
	if resp.Request.Header.Get("X-Test") != "value" {
		t.Error("expected injected header on the recorded request")
	}
}

func TestNewClientCookieIsolation(t *testing.T) {
	t.Parallel()

	// The server sets a cookie on /set and echoes received cookies on /echo.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/set" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "first", Path: "/"})
			return
		}
		_, _ = w.Write([]byte(r.Header.Get("Cookie")))
	}))
	defer server.Close()

	first, err := NewClient(Options{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	second, err := NewClient(Options{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	get(t, first, server.URL+"/set")

	body, _ := io.ReadAll(get(t, first, server.URL+"/echo").Body)
	if !strings.Contains(string(body), "session=first") {
		t.Errorf("first client should resend its cookie, got %q", body)
	}

	body, _ = io.ReadAll(get(t, second, server.URL+"/echo").Body)
	if len(body) != 0 {
		t.Errorf("second client must not see first client's cookie, got %q", body)
	}
}

func TestNewClientRedirects(t *testing.T) {
	t.Parallel()

	// /hop/N redirects to /hop/N-1 until /hop/0 answers 200.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/hop/"))
		if n == 0 {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Redirect(w, r, "/hop/"+strconv.Itoa(n-1), http.StatusFound)
	}))
	t.Cleanup(server.Close)

	t.Run("not followed by default", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient(Options{Timeout: 5 * time.Second})
		if err != nil {
			t.Fatalf("NewClient failed: %v", err)
		}
		resp := get(t, client, server.URL+"/hop/2")
		if resp.StatusCode != http.StatusFound {
			t.Errorf("expected 302, got %d", resp.StatusCode)
		}
	})

	t.Run("followed when enabled", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient(Options{Timeout: 5 * time.Second, FollowRedirects: true, MaxRedirects: 5})
		if err != nil {
			t.Fatalf("NewClient failed: %v", err)
		}
		resp := get(t, client, server.URL+"/hop/3")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
		if resp.Request.URL.Path != "/hop/0" {
			t.Errorf("expected final path /hop/0, got %s", resp.Request.URL.Path)
		}
	})

	t.Run("stops at cap", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient(Options{Timeout: 5 * time.Second, FollowRedirects: true, MaxRedirects: 2})
		if err != nil {
			t.Fatalf("NewClient failed: %v", err)
		}
		resp := get(t, client, server.URL+"/hop/5")
		if resp.StatusCode != http.StatusFound {
			t.Errorf("expected the last redirect response, got %d", resp.StatusCode)
		}
		if resp.Request.URL.Path != "/hop/3" {
			t.Errorf("expected to stop at /hop/3, got %s", resp.Request.URL.Path)
		}
	})
}

func TestNewClientHTTPProxy(t *testing.T) {
	t.Parallel()

	proxied := make(chan string, 1)
	proxyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxied <- r.URL.Host
		_, _ = w.Write([]byte("via proxy"))
	}))
	defer proxyServer.Close()

	proxyURL, err := url.Parse(proxyServer.URL)
	if err != nil {
		t.Fatal(err)
	}

	client, err := NewClient(Options{Timeout: 5 * time.Second, Proxy: proxyURL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	body, _ := io.ReadAll(get(t, client, "http://target.example/").Body)
	if string(body) != "via proxy" {
		t.Errorf("expected proxied body, got %q", body)
	}
	if proxiedHost := <-proxied; proxiedHost != "target.example" {
		t.Errorf("proxy saw host %q, want target.example", proxiedHost)
	}
}

func TestNewClientSOCKSProxy(t *testing.T) {
	t.Parallel()

	proxyURL, err := ParseProxy("socks5://127.0.0.1:1080")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewClient(Options{Proxy: proxyURL}); err != nil {
		t.Fatalf("NewClient with SOCKS proxy failed: %v", err)
	}
}
