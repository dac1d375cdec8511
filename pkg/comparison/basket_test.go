package comparison

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/iwvelando/credit-simulator/pkg/credit"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func result(id string, payment float64) credit.Result {
	return credit.Result{ID: id, MonthlyPayment: payment}
}

func TestBasketAddIgnoresDuplicates(t *testing.T) {
	first := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	basket := NewBasket(fixedClock(first))

	if !basket.Add(result("B1-HIP01", 1000)) {
		t.Fatal("expected first add to change the basket")
	}
	basket.now = fixedClock(first.Add(time.Hour))
	if basket.Add(result("B1-HIP01", 2000)) {
		t.Error("expected duplicate add to be a no-op")
	}

	items := basket.Items()
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].MonthlyPayment != 1000 {
		t.Errorf("duplicate replaced the original: %+v", items[0])
	}
	if !items[0].AddedAt.Equal(first) {
		t.Errorf("AddedAt = %v, expected %v", items[0].AddedAt, first)
	}
}

func TestBasketRemove(t *testing.T) {
	basket := NewBasket(nil)
	basket.Add(result("a", 1))
	basket.Add(result("b", 2))
	basket.Add(result("c", 3))

	if basket.Remove("missing") {
		t.Error("expected removing an absent id to be a no-op")
	}
	if basket.Len() != 3 {
		t.Errorf("Len() = %d after no-op remove", basket.Len())
	}
	if !basket.Remove("b") {
		t.Fatal("expected remove to succeed")
	}
	if basket.Contains("b") {
		t.Error("b still present")
	}

	items := basket.Items()
	if len(items) != 2 || items[0].ID != "a" || items[1].ID != "c" {
		t.Errorf("unexpected order after remove: %+v", items)
	}
}

func TestBasketClear(t *testing.T) {
	basket := NewBasket(nil)
	basket.Add(result("a", 1))
	basket.Add(result("b", 2))
	basket.Clear()

	if basket.Len() != 0 {
		t.Errorf("Len() = %d after Clear", basket.Len())
	}
	if items := basket.Items(); items == nil || len(items) != 0 {
		t.Errorf("expected empty non-nil items, got %v", items)
	}
	if !basket.Add(result("a", 1)) {
		t.Error("expected add after clear to succeed")
	}
}

func TestBasketItemsIsACopy(t *testing.T) {
	basket := NewBasket(nil)
	basket.Add(result("a", 1))

	items := basket.Items()
	items[0].ID = "mutated"
	if !basket.Contains("a") {
		t.Error("mutating Items() changed the basket")
	}
}

func TestBasketConcurrentAdds(t *testing.T) {
	basket := NewBasket(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			basket.Add(result(fmt.Sprintf("id-%d", i%10), float64(i)))
		}(i)
	}
	wg.Wait()

	if basket.Len() != 10 {
		t.Errorf("Len() = %d, expected 10 distinct ids", basket.Len())
	}
}

func TestSessions(t *testing.T) {
	sessions := NewSessions(nil, 0)

	if _, ok := sessions.Lookup("s1"); ok {
		t.Error("expected no basket before first use")
	}
	one := sessions.Basket("s1")
	one.Add(result("a", 1))
	if sessions.Basket("s1") != one {
		t.Error("expected the same basket for the same session")
	}
	if sessions.Basket("s2").Len() != 0 {
		t.Error("sessions must not share baskets")
	}
	if sessions.Len() != 2 {
		t.Errorf("Len() = %d, expected 2", sessions.Len())
	}

	sessions.Drop("s1")
	if _, ok := sessions.Lookup("s1"); ok {
		t.Error("expected dropped session to be gone")
	}
}

func TestSessionsSweepDropsIdleBaskets(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	sessions := NewSessions(clock, 30*time.Minute)
	sessions.Basket("idle").Add(result("a", 1))
	sessions.Basket("active")

	advance(20 * time.Minute)
	if _, ok := sessions.Lookup("active"); !ok {
		t.Fatal("expected active session to exist")
	}
	advance(15 * time.Minute)

	if dropped := sessions.Sweep(); dropped != 1 {
		t.Errorf("Sweep() = %d, expected 1", dropped)
	}
	if _, ok := sessions.Lookup("idle"); ok {
		t.Error("expected idle session to be dropped")
	}
	if _, ok := sessions.Lookup("active"); !ok {
		t.Error("expected recently used session to survive")
	}
}

func TestSessionsWithoutTTLNeverExpire(t *testing.T) {
	sessions := NewSessions(nil, 0)
	sessions.Basket("s1")
	if dropped := sessions.Sweep(); dropped != 0 {
		t.Errorf("Sweep() = %d, expected 0", dropped)
	}
	if sessions.Len() != 1 {
		t.Errorf("Len() = %d, expected 1", sessions.Len())
	}
}

func TestSessionsJanitor(t *testing.T) {
	sessions := NewSessions(nil, time.Nanosecond)
	sessions.Basket("s1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sessions.Janitor(ctx, time.Millisecond, nil)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for sessions.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	if sessions.Len() != 0 {
		t.Errorf("Len() = %d, expected the janitor to drop the idle session", sessions.Len())
	}
}
