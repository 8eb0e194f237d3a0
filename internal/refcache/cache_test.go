package refcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type assembly struct {
	id Identity
}

func TestCache_ConcurrentResolveLoadsOnce(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c := New(func(_ context.Context, id Identity) (*assembly, error) {
		calls.Add(1)
		<-release
		return &assembly{id: id}, nil
	})

	const n = 32
	id := Identity{Name: "fmt", Version: "go1.25.1"}
	results := make([]*assembly, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Resolve(context.Background(), id)
			if err != nil {
				t.Errorf("Resolve() error = %v", err)
				return
			}
			results[i] = v
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("load ran %d times, want 1", got)
	}
	for i, r := range results {
		if r != results[0] {
			t.Fatalf("caller %d observed a different instance", i)
		}
	}
	if c.Len() != 1 || c.Loads() != 1 {
		t.Errorf("Len() = %d, Loads() = %d", c.Len(), c.Loads())
	}
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	fail := true
	c := New(func(_ context.Context, id Identity) (string, error) {
		if fail {
			return "", errors.New("missing")
		}
		return id.Name, nil
	})
	id := Identity{Name: "strings"}

	if _, err := c.Resolve(context.Background(), id); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := c.Peek(id); ok {
		t.Fatal("failed load was cached")
	}

	fail = false
	v, err := c.Resolve(context.Background(), id)
	if err != nil || v != "strings" {
		t.Fatalf("Resolve() = %q, %v", v, err)
	}
	if c.Loads() != 2 {
		t.Errorf("Loads() = %d, want 2", c.Loads())
	}
}

func TestIdentity_String(t *testing.T) {
	if got := (Identity{Name: "os"}).String(); got != "os" {
		t.Errorf("String() = %q", got)
	}
	if got := (Identity{Name: "os", Version: "v1"}).String(); got != "os@v1" {
		t.Errorf("String() = %q", got)
	}
}
