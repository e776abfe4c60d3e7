package redis

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/gearsclient/logger"
)

// newTestClient creates a Client backed by miniredis.
func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(func() { mini.Close() })

	client, err := New(Config{Enabled: true, Addr: mini.Addr()}, logger.Nop())
	if err != nil {
		t.Fatalf("failed to create redis client: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, mini
}

func TestClient_PingAndDo(t *testing.T) {
	client, mini := newTestClient(t)
	ctx := context.Background()

	if err := client.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	if _, err := client.Do(ctx, "SET", "k", "v"); err != nil {
		t.Fatalf("Do SET failed: %v", err)
	}
	got, err := mini.Get("k")
	if err != nil || got != "v" {
		t.Fatalf("expected k=v in server, got %q (%v)", got, err)
	}

	reply, err := client.Do(ctx, "GET", "k")
	if err != nil {
		t.Fatalf("Do GET failed: %v", err)
	}
	if reply != "v" {
		t.Errorf("expected reply v, got %v", reply)
	}
}

func TestClient_DoServerError(t *testing.T) {
	client, _ := newTestClient(t)
	_, err := client.Do(context.Background(), "NO.SUCH.COMMAND")
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestClient_CloseTwice(t *testing.T) {
	client, _ := newTestClient(t)
	if err := client.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got %v", err)
	}
	var nilClient *Client
	if err := nilClient.Close(); err != nil {
		t.Fatalf("nil Close should be a no-op, got %v", err)
	}
}

func TestNew_Disabled(t *testing.T) {
	_, err := New(Config{Addr: "localhost:6379"}, nil)
	if err == nil || !strings.Contains(err.Error(), "disabled") {
		t.Fatalf("expected disabled error, got %v", err)
	}
}

func TestNewLocal(t *testing.T) {
	c := NewLocal(nil)
	defer c.Close()
	if c.Addr() != DefaultAddr {
		t.Errorf("expected %s, got %s", DefaultAddr, c.Addr())
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Addr != DefaultAddr {
		t.Errorf("expected default addr, got %q", cfg.Addr)
	}
	if cfg.PoolSize != 10 {
		t.Errorf("expected pool size 10, got %d", cfg.PoolSize)
	}
	if cfg.MaxRetries != -1 {
		t.Errorf("expected retries disabled, got %d", cfg.MaxRetries)
	}
	if cfg.ReadTimeout != "30s" {
		t.Errorf("expected read timeout 30s, got %q", cfg.ReadTimeout)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled skips", Config{}, false},
		{"valid", Config{Enabled: true, Addr: "h:1", PoolSize: 1, DialTimeout: "1s", ReadTimeout: "1s", WriteTimeout: "1s"}, false},
		{"missing addr", Config{Enabled: true, PoolSize: 1}, true},
		{"bad timeout", Config{Enabled: true, Addr: "h:1", PoolSize: 1, DialTimeout: "soon", ReadTimeout: "1s", WriteTimeout: "1s"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
