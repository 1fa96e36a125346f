package notify

import "testing"

func TestHubDelivers(t *testing.T) {
	h := NewHub[int](4)
	a, cancelA := h.Subscribe()
	b, cancelB := h.Subscribe()
	defer cancelB()

	h.Publish(1)
	if got := <-a; got != 1 {
		t.Fatalf("a: expected 1, got %d", got)
	}
	if got := <-b; got != 1 {
		t.Fatalf("b: expected 1, got %d", got)
	}

	cancelA()
	cancelA()
	if _, ok := <-a; ok {
		t.Fatal("cancelled channel should be closed")
	}
	if h.Len() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", h.Len())
	}
}

func TestHubNewestWins(t *testing.T) {
	h := NewHub[int](2)
	ch, cancel := h.Subscribe()
	defer cancel()

	for i := 1; i <= 5; i++ {
		h.Publish(i)
	}

	first, second := <-ch, <-ch
	if first != 4 || second != 5 {
		t.Fatalf("expected the two newest values 4,5; got %d,%d", first, second)
	}
}
