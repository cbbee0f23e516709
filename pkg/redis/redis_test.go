package redis

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/yi-nology/docvault/pkg/config"
)

func TestNewClientDisabled(t *testing.T) {
	client, err := NewClient(config.RedisConfig{})
	if err != nil || client != nil {
		t.Fatalf("expected nil client for disabled redis, got %v, %v", client, err)
	}
}

func TestNewClientPings(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	client, err := NewClient(config.RedisConfig{Enabled: true, Address: addr})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	mr.Close()
	if _, err := NewClient(config.RedisConfig{Enabled: true, Address: addr}); err == nil {
		t.Fatal("expected ping failure against a stopped server")
	}
}
