package history

import (
	"testing"
	"time"
)

func TestWriter_PersistsBeforeClose(t *testing.T) {
	store := openTestStore(t)
	w := NewWriter(store, nil)

	w.Write(testRound("round-async", time.Now().UTC()))
	w.Close()

	rounds, err := store.RecentRounds(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rounds) != 1 || rounds[0].ID != "round-async" {
		t.Fatalf("round not persisted by close: %v", rounds)
	}
}

func TestWriter_DropsWhenQueueFull(t *testing.T) {
	store := openTestStore(t)
	w := NewWriter(store, nil)

	// More writes than the queue holds; the overflow is dropped, never
	// blocked on.
	for i := 0; i < 50; i++ {
		w.Write(testRound(string(rune('A'+i)), time.Now().UTC()))
	}
	w.Close()

	rounds, err := store.RecentRounds(100)
	if err != nil {
		t.Fatal(err)
	}
	if len(rounds) == 0 || len(rounds) > 50 {
		t.Fatalf("unexpected persisted count %d", len(rounds))
	}
}
