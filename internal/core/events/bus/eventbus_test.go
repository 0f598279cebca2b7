package bus

import (
	"errors"
	"sync"
	"testing"
)

func TestBasicPublishSubscribe(t *testing.T) {
	b := New()
	var got Event
	_, err := b.Subscribe(TypeTick, func(e Event) error {
		got = e
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err = b.Publish(NewEvent(TypeTick, "tester", 123)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got == nil {
		t.Fatal("handler not called")
	}
	if got.Data() != 123 || got.Source() != "tester" || got.Timestamp().IsZero() {
		t.Fatalf("unexpected event: %+v", got)
	}
}

func TestDeliveryOrderAndWildcard(t *testing.T) {
	b := New()
	var order []string
	_, _ = b.Subscribe(Wildcard, func(e Event) error { order = append(order, "any:"+e.Type()); return nil })
	_, _ = b.Subscribe(TypeHit, func(Event) error { order = append(order, "hit1"); return nil })
	_, _ = b.Subscribe(TypeHit, func(Event) error { order = append(order, "hit2"); return nil })

	_ = b.Publish(NewEvent(TypeHit, "sim", nil))
	_ = b.Publish(NewEvent(TypePickup, "sim", nil))

	want := []string{"hit1", "hit2", "any:" + TypeHit, "any:" + TypePickup}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
}

func TestErrorsAreJoined(t *testing.T) {
	b := New()
	e1, e2 := errors.New("first"), errors.New("second")
	_, _ = b.Subscribe("x", func(Event) error { return e1 })
	_, _ = b.Subscribe("x", func(Event) error { return e2 })
	_, _ = b.Subscribe("x", func(Event) error { panic("boom") })

	err := b.Publish(NewEvent("x", "src", nil))
	if !errors.Is(err, e1) || !errors.Is(err, e2) {
		t.Fatalf("expected both errors, got %v", err)
	}
	if s := b.Stats(); s.Errors != 1 || s.Deliveries != 3 {
		t.Fatalf("unexpected stats: %+v", s)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	count := 0
	sub, _ := b.Subscribe("e", func(Event) error { count++; return nil })
	_ = b.Publish(NewEvent("e", "s", nil))
	if err := b.Unsubscribe(sub); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if sub.IsActive() {
		t.Fatal("subscription still active")
	}
	_ = sub.Cancel()
	_ = b.Unsubscribe(nil)
	_ = b.Publish(NewEvent("e", "s", nil))
	if count != 1 {
		t.Fatalf("handler called %d times", count)
	}
	if n := b.Stats().Subscribers; n != 0 {
		t.Fatalf("subscribers = %d", n)
	}
}

func TestNilHandler(t *testing.T) {
	if _, err := New().Subscribe("e", nil); !errors.Is(err, ErrNilHandler) {
		t.Fatalf("expected ErrNilHandler, got %v", err)
	}
}

func TestConcurrentPublishSubscribe(t *testing.T) {
	b := New()
	var mu sync.Mutex
	seen := 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub, _ := b.Subscribe("c", func(Event) error {
				mu.Lock()
				seen++
				mu.Unlock()
				return nil
			})
			_ = sub.Cancel()
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = b.Publish(NewEvent("c", "s", j))
			}
		}()
	}
	wg.Wait()
	if s := b.Stats(); s.Published != 800 || s.Subscribers != 0 {
		t.Fatalf("unexpected stats: %+v", s)
	}
}
