package core

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestContainer_Singleton(t *testing.T) {
	c := NewContainer()
	var builds atomic.Int32
	c.Singleton("svc", func(*Container) (any, error) {
		builds.Add(1)
		return new(int), nil
	})

	a, err := c.Make("svc")
	if err != nil {
		t.Fatalf("Make() error: %v", err)
	}
	b, _ := c.Make("svc")
	if a != b {
		t.Error("singleton should return the same instance")
	}
	if builds.Load() != 1 {
		t.Errorf("factory ran %d times, want 1", builds.Load())
	}
}

func TestContainer_Bind(t *testing.T) {
	c := NewContainer()
	c.Bind("svc", func(*Container) (any, error) { return new(int), nil })

	a, _ := c.Make("svc")
	b, _ := c.Make("svc")
	if a == b {
		t.Error("Bind should build a fresh value on every Make")
	}
}

func TestContainer_AliasAndResolve(t *testing.T) {
	c := NewContainer()
	c.Instance("telegram", "client")
	c.Alias("telegram.client", "telegram")
	c.Alias("tg", "telegram.client")

	got, err := Resolve[string](c, "tg")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got != "client" {
		t.Errorf("Resolve(tg) = %q, want client", got)
	}
	if !c.Bound("tg") {
		t.Error("Bound(tg) = false, want true")
	}

	if _, err := Resolve[int](c, "tg"); err == nil {
		t.Error("Resolve with the wrong type should fail")
	}
}

func TestContainer_NotFound(t *testing.T) {
	c := NewContainer()
	if _, err := c.Make("nope"); !errors.Is(err, ErrServiceNotFound) {
		t.Errorf("Make(nope) error = %v, want ErrServiceNotFound", err)
	}
	c.Alias("dangling", "nope")
	if c.Bound("dangling") {
		t.Error("an alias to nothing is not bound")
	}
}

func TestContainer_FactoryDependencies(t *testing.T) {
	c := NewContainer()
	c.Instance("endpoint", "https://api.telegram.org")
	c.Singleton("client", func(c *Container) (any, error) {
		ep, err := Resolve[string](c, "endpoint")
		if err != nil {
			return nil, err
		}
		return "client@" + ep, nil
	})

	got, err := Resolve[string](c, "client")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got != "client@https://api.telegram.org" {
		t.Errorf("client = %q", got)
	}
}

func TestContainer_FactoryError(t *testing.T) {
	c := NewContainer()
	boom := errors.New("boom")
	c.Singleton("svc", func(*Container) (any, error) { return nil, boom })

	if _, err := c.Make("svc"); !errors.Is(err, boom) {
		t.Errorf("Make() error = %v, want wrapped boom", err)
	}
}

func TestContainer_Cycle(t *testing.T) {
	c := NewContainer()
	c.Singleton("a", func(c *Container) (any, error) { return c.Make("b") })
	c.Singleton("b", func(c *Container) (any, error) { return c.Make("a") })

	if _, err := c.Make("a"); err == nil {
		t.Fatal("a dependency cycle should fail")
	}
}

func TestContainer_RebindDropsInstance(t *testing.T) {
	c := NewContainer()
	c.Singleton("svc", func(*Container) (any, error) { return 1, nil })
	if _, err := c.Make("svc"); err != nil {
		t.Fatal(err)
	}
	c.Singleton("svc", func(*Container) (any, error) { return 2, nil })

	if got, _ := Resolve[int](c, "svc"); got != 2 {
		t.Errorf("svc = %d after rebind, want 2", got)
	}
}

func TestContainer_Names(t *testing.T) {
	c := NewContainer()
	c.Instance("b", 1)
	c.Bind("a", func(*Container) (any, error) { return nil, nil })
	c.Alias("c", "a")

	if diff := cmp.Diff([]string{"a", "b", "c"}, c.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestContainer_ConcurrentSingleton(t *testing.T) {
	c := NewContainer()
	var builds atomic.Int32
	c.Singleton("counted", func(*Container) (any, error) {
		builds.Add(1)
		return new(int), nil
	})

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Make("counted"); err != nil {
				t.Errorf("Make() error: %v", err)
			}
		}()
	}
	wg.Wait()

	if builds.Load() != 1 {
		t.Errorf("factory ran %d times, want 1", builds.Load())
	}
}
