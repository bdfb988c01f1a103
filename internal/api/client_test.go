package api

import (
	"errors"
	"testing"
	"time"

	apierrors "github.com/diogo/detectchat/internal/errors"
)

func TestNewClient_DefaultHTTPClient(t *testing.T) {
	client, err := NewClient(withBase("http://localhost:8080"))
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	defer client.Close()

	if client.httpClient == nil {
		t.Error("expected a TLS client to be created")
	}
	if client.Timeout() != 0 {
		t.Errorf("Timeout() = %v, want 0", client.Timeout())
	}
}

func TestNewClient_Options(t *testing.T) {
	mock := NewMockHttpClient([]byte(`{}`), 200)

	client, err := NewClient(
		WithHTTPClient(mock),
		withBase("http://localhost:8080"),
		WithTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	if client.httpClient != mock {
		t.Error("WithHTTPClient was not applied")
	}
	if client.Timeout() != 5*time.Second {
		t.Errorf("Timeout() = %v", client.Timeout())
	}

	endpoint, err := client.Endpoint()
	if err != nil {
		t.Fatalf("Endpoint() error: %v", err)
	}
	if endpoint != "http://localhost:8080/detect" {
		t.Errorf("Endpoint() = %s", endpoint)
	}
}

func TestEndpoint_NoBaseURL(t *testing.T) {
	client, _ := NewClient(WithHTTPClient(NewMockHttpClient(nil, 200)))

	_, err := client.Endpoint()
	if !errors.Is(err, apierrors.ErrNoBackendURL) {
		t.Errorf("expected ErrNoBackendURL, got %v", err)
	}

	empty, _ := NewClient(WithHTTPClient(NewMockHttpClient(nil, 200)), withBase(""))
	if _, err := empty.Endpoint(); !errors.Is(err, apierrors.ErrNoBackendURL) {
		t.Errorf("expected ErrNoBackendURL for empty base, got %v", err)
	}
}

func TestEndpoint_ResolverCalledEachTime(t *testing.T) {
	bases := []string{"http://one", "http://two"}
	calls := 0

	client, _ := NewClient(
		WithHTTPClient(NewMockHttpClient(nil, 200)),
		WithBaseURLResolver(func() (string, error) {
			base := bases[calls%len(bases)]
			calls++
			return base, nil
		}),
	)

	first, _ := client.Endpoint()
	second, _ := client.Endpoint()

	if first != "http://one/detect" || second != "http://two/detect" {
		t.Errorf("endpoints = %s, %s", first, second)
	}
}

func TestClose(t *testing.T) {
	mock := NewMockHttpClient(nil, 200)
	client, _ := NewClient(WithHTTPClient(mock), withBase("http://x"))

	if client.IsClosed() {
		t.Fatal("new client should not be closed")
	}

	client.Close()
	client.Close()

	if !client.IsClosed() {
		t.Error("client should be closed")
	}
	if !mock.Closed {
		t.Error("idle connections should be closed")
	}
}
