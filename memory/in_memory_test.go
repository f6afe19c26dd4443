package memory

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

// Interface compliance (compile-time assertions)
var _ Store = (*InMemoryStore)(nil)

func TestInMemoryStore_SaveAndList(t *testing.T) {
	svc := NewInMemoryStore()
	notes, err := svc.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notes) != 0 {
		t.Fatalf("expected no notes, got %#v", notes)
	}

	a, _ := svc.Save(Note{Topic: "termination", Content: "clause 4 is one-sided"})
	b, _ := svc.Save(Note{Topic: "liability", Content: "uncapped"})
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected distinct ids, got %q and %q", a.ID, b.ID)
	}

	notes, _ = svc.List()
	if len(notes) != 2 || notes[0].Topic != "termination" || notes[1].Topic != "liability" {
		t.Fatalf("unexpected notes: %#v", notes)
	}
	// returned slice is a copy
	notes[0].Topic = "changed"
	again, _ := svc.List()
	if again[0].Topic != "termination" {
		t.Fatalf("expected copy isolation, got %q", again[0].Topic)
	}
}

func TestInMemoryStore_SearchDelete(t *testing.T) {
	svc := NewInMemoryStore()
	for i := 0; i < 5; i++ {
		if _, err := svc.Save(Note{Topic: fmt.Sprintf("topic%d", i), Content: "content" + string(rune('A'+i))}); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	res, err := svc.Search("", 0)
	if err != nil {
		t.Fatalf("search all failed: %v", err)
	}
	if len(res) != 5 {
		t.Fatalf("expected 5 results, got %d", len(res))
	}
	// case-insensitive match on content
	res2, _ := svc.Search("CONTENTa", 5)
	if len(res2) != 1 || res2[0].Topic != "topic0" {
		t.Fatalf("expected single match, got %#v", res2)
	}
	// match on topic
	res3, _ := svc.Search("topic3", 0)
	if len(res3) != 1 || res3[0].Content != "contentD" {
		t.Fatalf("expected topic match, got %#v", res3)
	}
	// limit
	res4, _ := svc.Search("", 3)
	if len(res4) != 3 || res4[0].Topic != "topic0" {
		t.Fatalf("expected first 3 in save order, got %#v", res4)
	}

	if err := svc.Delete(res[0].ID); err != nil {
		t.Fatalf("delete existing failed: %v", err)
	}
	res5, _ := svc.Search("", 0)
	if len(res5) != 4 {
		t.Fatalf("expected 4 after delete, got %d", len(res5))
	}
	if err := svc.Delete("does_not_exist"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryStore_ConcurrentAccess(t *testing.T) {
	svc := NewInMemoryStore()
	wg := sync.WaitGroup{}
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := svc.Save(Note{Topic: string(rune('A' + (i % 5)))}); err != nil {
				t.Errorf("save error: %v", err)
			}
			if _, err := svc.Search("a", 5); err != nil {
				t.Errorf("search error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	notes, _ := svc.List()
	if len(notes) != 25 {
		t.Fatalf("expected 25 notes, got %d", len(notes))
	}
	seen := map[string]bool{}
	for _, n := range notes {
		if seen[n.ID] {
			t.Fatalf("duplicate id %s", n.ID)
		}
		seen[n.ID] = true
	}
}
