package feed

import (
	"fmt"
	"testing"

	"bursa/internal/domain"
)

func entry(i int) domain.FeedEntry {
	return domain.FeedEntry{Identity: fmt.Sprint(i), Symbol: "GGAL", Side: domain.SideBuy, Quantity: i}
}

func TestFeedNewestFirst(t *testing.T) {
	f := New(8)
	for i := 1; i <= 3; i++ {
		f.Push(entry(i))
	}
	got := f.Entries()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []int{3, 2, 1} {
		if got[i].Quantity != want {
			t.Errorf("entry %d quantity = %d, want %d", i, got[i].Quantity, want)
		}
	}
}

func TestFeedEvictsOldestBeyondCapacity(t *testing.T) {
	f := New(8)
	for i := 1; i <= 20; i++ {
		f.Push(entry(i))
		if f.Len() > 8 {
			t.Fatalf("feed grew to %d entries", f.Len())
		}
	}
	got := f.Entries()
	if len(got) != 8 {
		t.Fatalf("len = %d, want 8", len(got))
	}
	// Newest 20 first, oldest surviving is 13.
	if got[0].Quantity != 20 || got[7].Quantity != 13 {
		t.Errorf("entries = %d..%d, want 20..13", got[0].Quantity, got[7].Quantity)
	}
}

func TestFeedEntriesIsCopy(t *testing.T) {
	f := New(2)
	f.Push(entry(1))
	got := f.Entries()
	got[0].Symbol = "MUTATED"
	if f.Entries()[0].Symbol != "GGAL" {
		t.Error("Entries must return a copy")
	}
}

func TestFeedMinimumCapacity(t *testing.T) {
	f := New(0)
	if f.Cap() != 1 {
		t.Fatalf("Cap = %d, want 1", f.Cap())
	}
	f.Push(entry(1))
	f.Push(entry(2))
	if got := f.Entries(); len(got) != 1 || got[0].Quantity != 2 {
		t.Errorf("entries = %+v", got)
	}
}
