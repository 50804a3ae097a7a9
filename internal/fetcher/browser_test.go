package fetcher

import (
	"context"
	"errors"
	"testing"
)

func TestPoolAcquireAfterClose(t *testing.T) {
	p := NewBrowserPool(2, "", testLogger)
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, release, err := p.Acquire(context.Background())
	if !errors.Is(err, errPoolClosed) {
		t.Errorf("expected errPoolClosed, got %v", err)
	}
	if b != nil {
		t.Error("closed pool handed out a browser")
	}
	if release != nil {
		t.Error("closed pool handed out a release func")
	}
}

func TestPoolCloseIsIdempotent(t *testing.T) {
	p := NewBrowserPool(1, "", testLogger)
	if err := p.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestPoolSizeFloor(t *testing.T) {
	p := NewBrowserPool(0, "", testLogger)
	if p.size != 1 {
		t.Errorf("expected minimum pool size 1, got %d", p.size)
	}
}
