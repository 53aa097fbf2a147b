package ecs

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var (
	testText  = NewComponent[string]("test_text")
	testCount = NewComponent[int]("test_count")
)

func TestSpawnIsAliveAndNonZero(t *testing.T) {
	w := NewWorld()
	id := w.Spawn()
	if id.IsZero() {
		t.Fatal("expected non-zero entity ID")
	}
	if !w.Alive(id) {
		t.Fatal("expected entity to be alive after spawn")
	}
}

func TestStaleIDNeverAlive(t *testing.T) {
	w := NewWorld()
	a := w.Spawn()
	if _, err := w.Despawn(a); err != nil {
		t.Fatalf("despawn: %v", err)
	}
	b := w.Spawn()
	if a.Index() != b.Index() {
		t.Fatalf("expected slot reuse, got %s then %s", a, b)
	}
	if w.Alive(a) {
		t.Fatal("stale id reported alive after slot reuse")
	}
	if err := Set(w, a, testText, "zombie"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound writing stale id, got %v", err)
	}
}

func TestSetGetRemove(t *testing.T) {
	w := NewWorld()
	id := w.Spawn()
	if err := Set(w, id, testCount, 42); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, ok := Get(w, id, testCount); !ok || v != 42 {
		t.Fatalf("expected 42, got %d (ok=%v)", v, ok)
	}
	if err := w.Remove(id, testCount.ID()); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if w.Has(id, testCount.ID()) {
		t.Fatal("component should be gone after Remove")
	}
	// Removing an absent component is a no-op.
	if err := w.Remove(id, testCount.ID()); err != nil {
		t.Fatalf("second remove: %v", err)
	}
}

func TestDespawnCascades(t *testing.T) {
	w := NewWorld()
	root := w.Spawn()
	child := w.Spawn()
	grandchild := w.Spawn()
	sibling := w.Spawn()
	for _, step := range []struct {
		id, parent EntityID
	}{{child, root}, {grandchild, child}, {sibling, root}} {
		if err := Set(w, step.id, ChildOf, step.parent); err != nil {
			t.Fatalf("link: %v", err)
		}
		if err := Set(w, step.id, testText, "x"); err != nil {
			t.Fatalf("set: %v", err)
		}
	}

	removed, err := w.Despawn(root)
	if err != nil {
		t.Fatalf("despawn: %v", err)
	}
	want := []EntityID{grandchild, child, sibling, root}
	if diff := cmp.Diff(want, removed); diff != "" {
		t.Fatalf("removal order mismatch (-want +got):\n%s", diff)
	}
	for _, id := range want {
		if w.Alive(id) {
			t.Fatalf("%s still alive", id)
		}
		if len(w.Components(id)) != 0 {
			t.Fatalf("%s still holds components %v", id, w.Components(id))
		}
	}
	if w.Len() != 0 {
		t.Fatalf("expected empty world, got %d entities", w.Len())
	}
}

func TestDespawnChildrenKeepsParent(t *testing.T) {
	w := NewWorld()
	root := w.Spawn()
	child := w.Spawn()
	if err := Set(w, child, ChildOf, root); err != nil {
		t.Fatalf("link: %v", err)
	}
	w.DespawnChildren(root)
	if !w.Alive(root) {
		t.Fatal("parent should survive DespawnChildren")
	}
	if w.Alive(child) || len(w.Children(root)) != 0 {
		t.Fatal("child should be gone")
	}
}

func TestRetainKeepsTag(t *testing.T) {
	w := NewWorld()
	id := w.Spawn()
	_ = Set(w, id, WidgetTag, struct{}{})
	_ = Set(w, id, testText, "hello")
	_ = Set(w, id, testCount, 1)

	if err := w.Retain(id, func(c ComponentID) bool { return c == WidgetTag.ID() }); err != nil {
		t.Fatalf("retain: %v", err)
	}
	if diff := cmp.Diff([]ComponentID{WidgetTag.ID()}, w.Components(id)); diff != "" {
		t.Fatalf("components mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryFiltersByParent(t *testing.T) {
	w := NewWorld()
	root := w.Spawn()
	a := w.Spawn()
	b := w.Spawn()
	_ = Set(w, a, ChildOf, root)
	_ = Set(w, a, testText, "a")
	_ = Set(w, b, testText, "b")

	if got := w.Query(ChildrenOf(root), testText.ID()); len(got) != 1 || got[0] != a {
		t.Fatalf("expected [%s], got %v", a, got)
	}
	if got := w.Query(AnyEntity(), testText.ID()); len(got) != 2 {
		t.Fatalf("expected 2 results, got %v", got)
	}
	if got := w.Query(AnyEntity(), testText.ID(), testCount.ID()); got != nil {
		t.Fatalf("expected no results, got %v", got)
	}
}

func TestDescendantsPreorder(t *testing.T) {
	w := NewWorld()
	root := w.Spawn()
	a := w.Spawn()
	a1 := w.Spawn()
	b := w.Spawn()
	_ = Set(w, a, ChildOf, root)
	_ = Set(w, a1, ChildOf, a)
	_ = Set(w, b, ChildOf, root)

	if diff := cmp.Diff([]EntityID{a, a1, b}, w.Descendants(root)); diff != "" {
		t.Fatalf("descendants mismatch (-want +got):\n%s", diff)
	}
}

func TestChangeTracking(t *testing.T) {
	w := NewWorld()
	w.TrackChanges(true)
	id := w.Spawn()
	_ = Set(w, id, testCount, 1)
	_ = w.Remove(id, testCount.ID())

	want := []Change{
		{Entity: id, Component: testCount.ID(), Value: 1},
		{Entity: id, Component: testCount.ID(), Removed: true},
	}
	if diff := cmp.Diff(want, w.Changes()); diff != "" {
		t.Fatalf("changes mismatch (-want +got):\n%s", diff)
	}
	w.ClearChanges()
	if len(w.Changes()) != 0 {
		t.Fatal("expected cleared change log")
	}
}
