package reactive

import (
	"errors"
	"reflect"
	"sync"
	"testing"
)

func TestSignalGetSet(t *testing.T) {
	s := NewSignal(1)
	if s.Get() != 1 {
		t.Errorf("expected 1, got %d", s.Get())
	}
	s.Set(2)
	if s.Peek() != 2 {
		t.Errorf("expected 2, got %d", s.Peek())
	}
	s.Update(func(v int) int { return v * 10 })
	if s.Peek() != 20 {
		t.Errorf("expected 20, got %d", s.Peek())
	}
}

func TestEffectTracksSignals(t *testing.T) {
	count := NewSignal(0)
	var seen []int

	CreateEffect(func() Cleanup {
		seen = append(seen, count.Get())
		return nil
	})

	count.Set(1)
	count.Set(1) // unchanged
	count.Set(2)

	want := []int{0, 1, 2}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("expected %v, got %v", want, seen)
	}
}

func TestPeekDoesNotTrack(t *testing.T) {
	count := NewSignal(0)
	runs := 0
	CreateEffect(func() Cleanup {
		runs++
		_ = count.Peek()
		return nil
	})
	count.Set(5)
	if runs != 1 {
		t.Errorf("expected 1 run, got %d", runs)
	}
	if count.Subscribers() != 0 {
		t.Errorf("expected no subscribers, got %d", count.Subscribers())
	}
}

func TestUntracked(t *testing.T) {
	a := NewSignal("a")
	b := NewSignal("b")
	runs := 0
	CreateEffect(func() Cleanup {
		runs++
		a.Get()
		Untracked(func() { b.Get() })
		return nil
	})
	b.Set("B")
	if runs != 1 {
		t.Errorf("untracked read re-ran the effect: %d runs", runs)
	}
	a.Set("A")
	if runs != 2 {
		t.Errorf("expected 2 runs, got %d", runs)
	}
}

func TestEffectCleanupBeforeRerun(t *testing.T) {
	s := NewSignal(0)
	var log []string
	e := CreateEffect(func() Cleanup {
		s.Get()
		log = append(log, "run")
		return func() { log = append(log, "cleanup") }
	})
	s.Set(1)
	e.Dispose()
	e.Dispose()
	s.Set(2)

	want := []string{"run", "cleanup", "run", "cleanup"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("expected %v, got %v", want, log)
	}
	if !e.IsDisposed() {
		t.Error("effect should be disposed")
	}
}

func TestEffectDropsStaleDependencies(t *testing.T) {
	useA := NewSignal(true)
	a := NewSignal(0)
	b := NewSignal(0)
	runs := 0
	CreateEffect(func() Cleanup {
		runs++
		if useA.Get() {
			a.Get()
		} else {
			b.Get()
		}
		return nil
	})

	useA.Set(false)
	a.Set(1)
	if runs != 2 {
		t.Errorf("stale dependency re-ran the effect: %d runs", runs)
	}
	b.Set(1)
	if runs != 3 {
		t.Errorf("expected 3 runs, got %d", runs)
	}
}

func TestBatchNotifiesOnce(t *testing.T) {
	first := NewSignal("")
	last := NewSignal("")
	runs := 0
	CreateEffect(func() Cleanup {
		runs++
		_ = first.Get() + last.Get()
		return nil
	})

	Batch(func() {
		first.Set("Ada")
		Batch(func() {
			last.Set("Lovelace")
		})
		if runs != 1 {
			t.Errorf("effect ran inside the batch")
		}
	})
	if runs != 2 {
		t.Errorf("expected 2 runs, got %d", runs)
	}
}

func TestWithEquals(t *testing.T) {
	s := NewSignal([]int{1}).WithEquals(func(a, b []int) bool { return len(a) == len(b) })
	runs := 0
	CreateEffect(func() Cleanup {
		s.Get()
		runs++
		return nil
	})
	s.Set([]int{2})
	if runs != 1 {
		t.Errorf("custom equality ignored: %d runs", runs)
	}
}

func TestSignalOfAnyComparesAcrossTypes(t *testing.T) {
	s := NewSignal[any]("1")
	s.Set(1)
	if s.Peek() != 1 {
		t.Errorf("expected 1, got %v", s.Peek())
	}
}

func TestOwnerDisposesEffects(t *testing.T) {
	owner := NewOwner(nil)
	s := NewSignal(0)
	runs := 0
	WithOwner(owner, func() {
		CreateEffect(func() Cleanup {
			s.Get()
			runs++
			return nil
		})
	})

	owner.Dispose()
	s.Set(1)
	if runs != 1 {
		t.Errorf("disposed owner's effect ran: %d runs", runs)
	}
	if !owner.IsDisposed() {
		t.Error("owner should be disposed")
	}
}

func TestOwnerMountOnce(t *testing.T) {
	owner := NewOwner(nil)
	child := NewOwner(owner)
	var order []string

	owner.OnMount(func() error { order = append(order, "parent"); return nil })
	child.OnMount(func() error { order = append(order, "child"); return nil })

	if err := owner.Mount(); err != nil {
		t.Fatalf("mount: %v", err)
	}
	if err := owner.Mount(); err != nil {
		t.Fatalf("second mount: %v", err)
	}

	if !reflect.DeepEqual(order, []string{"parent", "child"}) {
		t.Errorf("unexpected order %v", order)
	}
	if !owner.IsMounted() || !child.IsMounted() {
		t.Error("owner and child should be mounted")
	}

	// Registered after mount: runs immediately.
	boom := errors.New("boom")
	if err := owner.OnMount(func() error { return boom }); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestOwnerMountJoinsErrors(t *testing.T) {
	owner := NewOwner(nil)
	e1 := errors.New("one")
	e2 := errors.New("two")
	owner.OnMount(func() error { return e1 })
	NewOwner(owner).OnMount(func() error { return e2 })

	err := owner.Mount()
	if !errors.Is(err, e1) || !errors.Is(err, e2) {
		t.Errorf("expected joined errors, got %v", err)
	}
}

func TestOwnerCleanupOrder(t *testing.T) {
	root := NewOwner(nil)
	first := NewOwner(root)
	second := NewOwner(root)
	var order []string

	root.OnCleanup(func() { order = append(order, "root-1") })
	root.OnCleanup(func() { order = append(order, "root-2") })
	first.OnCleanup(func() { order = append(order, "first") })
	second.OnCleanup(func() { order = append(order, "second") })

	root.Dispose()
	root.Dispose()

	want := []string{"second", "first", "root-2", "root-1"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("expected %v, got %v", want, order)
	}

	ran := false
	root.OnCleanup(func() { ran = true })
	if !ran {
		t.Error("cleanup on a disposed owner should run immediately")
	}
}

func TestChildDisposeDetachesFromParent(t *testing.T) {
	root := NewOwner(nil)
	child := NewOwner(root)
	if child.Parent() != root {
		t.Fatal("parent not set")
	}
	child.Dispose()

	root.mu.Lock()
	n := len(root.children)
	root.mu.Unlock()
	if n != 0 {
		t.Errorf("expected no children, got %d", n)
	}
}

func TestEffectsOnOtherGoroutines(t *testing.T) {
	s := NewSignal(0)
	var mu sync.Mutex
	var seen []int
	CreateEffect(func() Cleanup {
		v := s.Get()
		mu.Lock()
		seen = append(seen, v)
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer Release()
		s.Set(7)
	}()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if !reflect.DeepEqual(seen, []int{0, 7}) {
		t.Errorf("unexpected values %v", seen)
	}
}
