package random

import (
	"sort"
	"strings"
	"sync"
	"testing"
)

func TestJoinCode(t *testing.T) {
	g := New(&Config{Seed: 42})

	code := g.JoinCode(5)
	if len(code) != 5 {
		t.Errorf("JoinCode length = %d, want 5", len(code))
	}

	for _, c := range code {
		if !strings.ContainsRune(codeAlphabet, c) {
			t.Errorf("JoinCode contains %q, not in alphabet", c)
		}
	}
}

func TestJoinCodeAlphabetExcludesAmbiguous(t *testing.T) {
	for _, c := range "0O1IL" {
		if strings.ContainsRune(codeAlphabet, c) {
			t.Errorf("alphabet contains ambiguous character %q", c)
		}
	}
}

func TestJoinCodeInvalidLength(t *testing.T) {
	g := New(&Config{Seed: 42})

	if got := g.JoinCode(0); len(got) != 5 {
		t.Errorf("JoinCode(0) length = %d, want default 5", len(got))
	}
}

func TestShuffleIsPermutation(t *testing.T) {
	g := New(&Config{Seed: 42})
	ids := []string{"a", "b", "c", "d", "e"}

	shuffled := g.Shuffle(ids)
	if len(shuffled) != len(ids) {
		t.Fatalf("Shuffle length = %d, want %d", len(shuffled), len(ids))
	}

	// The input is left untouched
	if !sort.StringsAreSorted(ids) {
		t.Error("Shuffle mutated its input")
	}

	seen := make(map[string]bool, len(shuffled))
	for _, id := range shuffled {
		seen[id] = true
	}
	for _, id := range ids {
		if !seen[id] {
			t.Errorf("Shuffle dropped %q", id)
		}
	}
}

func TestPick(t *testing.T) {
	g := New(&Config{Seed: 42})

	if got := g.Pick(nil); got != "" {
		t.Errorf("Pick(nil) = %q, want empty", got)
	}

	if got := g.Pick([]string{"only"}); got != "only" {
		t.Errorf("Pick single = %q, want %q", got, "only")
	}

	ids := []string{"a", "b", "c"}
	picked := g.Pick(ids)
	found := false
	for _, id := range ids {
		if id == picked {
			found = true
		}
	}
	if !found {
		t.Errorf("Pick returned %q, not in input", picked)
	}
}

func TestConcurrentUse(t *testing.T) {
	g := New(&Config{Seed: 42})
	ids := []string{"a", "b", "c", "d", "e"}

	// One generator is shared between every connection and the room
	// authority loop; run -race flushes out unguarded access
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				g.Shuffle(ids)
				g.Pick(ids)
				if code := g.JoinCode(5); len(code) != 5 {
					t.Errorf("JoinCode length = %d, want 5", len(code))
				}
			}
		}()
	}
	wg.Wait()
}
