package bot

import (
	"math/rand"
	"testing"
)

func TestActiveSetAddRemove(t *testing.T) {
	set := NewActiveSet()
	ref := testRef("1")

	t.Run("add is idempotent", func(t *testing.T) {
		if !set.Add(ref) {
			t.Error("first Add should report a change")
		}
		if set.Add(ref) {
			t.Error("second Add should report no change")
		}
		if set.Len() != 1 {
			t.Errorf("expected 1 member, got %d", set.Len())
		}
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		if !set.Remove(ref) {
			t.Error("first Remove should report a change")
		}
		if set.Remove(ref) {
			t.Error("second Remove should report no change")
		}
		if set.Len() != 0 {
			t.Errorf("expected 0 members, got %d", set.Len())
		}
	})
}

func TestActiveSetContains(t *testing.T) {
	set := NewActiveSet()
	ref := testRef("1")

	if set.Contains(ref) {
		t.Error("empty set should not contain anything")
	}
	set.Add(ref)
	if !set.Contains(ref) {
		t.Error("set should contain added member")
	}
}

func TestActiveSetPick(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	set := NewActiveSet()

	if _, ok := set.Pick(rng); ok {
		t.Error("Pick on an empty set should report false")
	}

	set.Add(testRef("1"))
	set.Add(testRef("2"))

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ref, ok := set.Pick(rng)
		if !ok {
			t.Fatal("Pick on a non-empty set should succeed")
		}
		seen[ref.ChatID] = true
	}
	if len(seen) != 2 {
		t.Errorf("expected both members picked over 100 draws, saw %v", seen)
	}
}

func TestActiveSetMembersSnapshot(t *testing.T) {
	set := NewActiveSet()
	set.Add(testRef("1"))

	members := set.Members()
	if len(members) != 1 {
		t.Fatalf("expected 1 member, got %d", len(members))
	}

	set.Add(testRef("2"))
	if len(members) != 1 {
		t.Error("Members must return a snapshot, not a live view")
	}
}
