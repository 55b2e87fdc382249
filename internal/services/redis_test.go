package services

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisService_Ping(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	for _, addr := range []string{"redis://" + mr.Addr(), mr.Addr()} {
		svc := NewRedisService(addr, discardLogger())
		if err := svc.Ping(context.Background()); err != nil {
			t.Errorf("Expected ping to %s to succeed, got %v", addr, err)
		}
		if err := svc.Close(); err != nil {
			t.Errorf("Failed to close Redis service: %v", err)
		}
	}

	addr := mr.Addr()
	mr.Close()
	svc := NewRedisService("redis://"+addr, discardLogger())
	defer func() { _ = svc.Close() }()
	if err := svc.Ping(context.Background()); err == nil {
		t.Error("Expected ping to fail after server shutdown")
	}
}
