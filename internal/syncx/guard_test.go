package syncx

import (
	"sync"
	"testing"
)

func TestGuardGetSet(t *testing.T) {
	g := NewGuard(42)

	if got := g.Get(); got != 42 {
		t.Errorf("Get() = %d, want 42", got)
	}

	g.Set(100)
	if got := g.Get(); got != 100 {
		t.Errorf("Get() after Set = %d, want 100", got)
	}
}

func TestGuardWriteUpdate(t *testing.T) {
	g := NewGuard([]string{"a"})

	g.Write(func(v *[]string) {
		*v = append(*v, "b")
	})
	if got := len(g.Get()); got != 2 {
		t.Errorf("len after Write = %d, want 2", got)
	}

	n := g.Update(func(v *[]string) any {
		*v = append(*v, "c")
		return len(*v)
	})
	if n != 3 {
		t.Errorf("Update result = %v, want 3", n)
	}
}

func TestGuardSwap(t *testing.T) {
	g := NewGuard("old")
	if old := g.Swap("new"); old != "old" {
		t.Errorf("Swap returned %q, want %q", old, "old")
	}
	if got := g.Get(); got != "new" {
		t.Errorf("Get after Swap = %q, want %q", got, "new")
	}
}

func TestGuardConcurrent(t *testing.T) {
	g := NewGuard(0)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Write(func(v *int) { *v++ })
		}()
	}
	wg.Wait()
	if got := g.Get(); got != 100 {
		t.Errorf("concurrent increments = %d, want 100", got)
	}
}

func TestTryClaim(t *testing.T) {
	var c TryClaim

	if !c.Claim() {
		t.Fatal("first Claim should succeed")
	}
	if c.Claim() {
		t.Error("second Claim should fail while held")
	}
	if !c.Held() {
		t.Error("Held should report true")
	}

	c.Release()
	if c.Held() {
		t.Error("Held should report false after Release")
	}
	if !c.Claim() {
		t.Error("Claim should succeed after Release")
	}
}
