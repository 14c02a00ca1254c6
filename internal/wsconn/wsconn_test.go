package wsconn

import (
	"context"
	"testing"
	"time"

	"github.com/sumitrevolt/flasharb/internal/apperror"
)

func TestNewValidation(t *testing.T) {
	_, err := New(Config{Name: "test"})
	if err == nil {
		t.Fatal("expected error for empty URL")
	}
	if apperror.GetCode(err) != apperror.CodeConfigurationError {
		t.Errorf("GetCode() = %v, want %v", apperror.GetCode(err), apperror.CodeConfigurationError)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("wss://example.com/ws", "feed")

	if cfg.URL != "wss://example.com/ws" {
		t.Errorf("URL = %q", cfg.URL)
	}
	if cfg.Name != "feed" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if cfg.InitialBackoff != time.Second {
		t.Errorf("InitialBackoff = %v", cfg.InitialBackoff)
	}
	if cfg.MaxBackoff != 30*time.Second {
		t.Errorf("MaxBackoff = %v", cfg.MaxBackoff)
	}
	if cfg.MaxReconnects != 0 {
		t.Errorf("MaxReconnects = %d, want 0 (infinite)", cfg.MaxReconnects)
	}
}

func TestNewAppliesBackoffDefaults(t *testing.T) {
	c, err := New(Config{URL: "wss://example.com", Name: "feed"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.config.InitialBackoff != time.Second {
		t.Errorf("InitialBackoff = %v", c.config.InitialBackoff)
	}
	if c.config.MaxBackoff != 30*time.Second {
		t.Errorf("MaxBackoff = %v", c.config.MaxBackoff)
	}
}

func TestSendNotConnected(t *testing.T) {
	c, err := New(DefaultConfig("wss://example.com", "feed"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = c.Send(context.Background(), []byte(`{"method":"SUBSCRIBE"}`))
	if err == nil {
		t.Fatal("expected error when not connected")
	}
	if apperror.GetCode(err) != apperror.CodeWebSocketSendError {
		t.Errorf("GetCode() = %v, want %v", apperror.GetCode(err), apperror.CodeWebSocketSendError)
	}
}

func TestInitialState(t *testing.T) {
	c, err := New(DefaultConfig("wss://example.com", "feed"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.State() != StateDisconnected {
		t.Errorf("State() = %v, want %v", c.State(), StateDisconnected)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true for fresh client")
	}
}

func TestCloseIdempotent(t *testing.T) {
	c, err := New(DefaultConfig("wss://example.com", "feed"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if c.State() != StateDisconnected {
		t.Errorf("State() after Close = %v", c.State())
	}
}

func TestConnectWithRetryRespectsClose(t *testing.T) {
	cfg := DefaultConfig("wss://127.0.0.1:1/unreachable", "feed")
	cfg.InitialBackoff = 10 * time.Millisecond
	cfg.MaxReconnects = 0

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- c.ConnectWithRetry(context.Background()) }()

	time.Sleep(50 * time.Millisecond)
	c.Close()

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("expected error after Close during retry")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ConnectWithRetry did not return after Close")
	}
}
