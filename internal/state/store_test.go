package state

import (
	"context"
	"errors"
	"testing"
)

func mustApply(t *testing.T, s *Store, evt Event) {
	t.Helper()
	if err := s.Apply(context.Background(), evt); err != nil {
		t.Fatalf("Apply(%+v) error: %v", evt, err)
	}
}

func TestApplySpacesFetch(t *testing.T) {
	s := NewStore()
	mustApply(t, s, Event{
		Kind:    KindSpaces,
		Payload: `{"spaces": [{"id": "S1", "name": "Engineering"}, {"id": "S2", "name": "Design"}]}`,
	})

	snap := s.Snapshot()
	if !snap.SpacesFetched {
		t.Error("SpacesFetched should be set after a spaces event")
	}
	if len(snap.Spaces) != 2 || snap.Spaces["S1"].Name != "Engineering" {
		t.Errorf("Spaces = %+v", snap.Spaces)
	}
}

func TestApplyPythonLiteralPayload(t *testing.T) {
	s := NewStore()
	mustApply(t, s, Event{
		Kind:    KindSpaces,
		Payload: `{'spaces': [{'id': 'S1', 'name': 'Ops', 'archived': False}]}`,
	})

	snap := s.Snapshot()
	if space, ok := snap.Spaces["S1"]; !ok || space.Name != "Ops" || space.Archived {
		t.Errorf("Spaces = %+v", snap.Spaces)
	}
}

func TestApplyFetchSupersedesSiblings(t *testing.T) {
	s := NewStore()
	mustApply(t, s, Event{
		Kind:     KindTasks,
		ParentID: "L1",
		Payload:  `{"tasks": [{"id": "T1", "name": "old"}, {"id": "T2", "name": "stays"}]}`,
	})
	// T1 vanished remotely; a fresh fetch of L1 must remove it locally.
	mustApply(t, s, Event{
		Kind:     KindTasks,
		ParentID: "L1",
		Payload:  `{"tasks": [{"id": "T2", "name": "stays"}, {"id": "T3", "name": "new"}]}`,
	})
	// A different list's tasks are untouched by L1 fetches.
	mustApply(t, s, Event{
		Kind:     KindTasks,
		ParentID: "L2",
		Payload:  `{"tasks": [{"id": "T9", "name": "elsewhere"}]}`,
	})

	snap := s.Snapshot()
	if _, ok := snap.Tasks["T1"]; ok {
		t.Error("T1 should have been superseded by the second L1 fetch")
	}
	for _, id := range []string{"T2", "T3", "T9"} {
		if _, ok := snap.Tasks[id]; !ok {
			t.Errorf("task %s missing from snapshot", id)
		}
	}
	if snap.Tasks["T3"].ListID != "L1" {
		t.Errorf("T3 ListID = %q, want stamped L1", snap.Tasks["T3"].ListID)
	}
	if !snap.TasksFetched["L1"] || !snap.TasksFetched["L2"] {
		t.Errorf("TasksFetched = %+v", snap.TasksFetched)
	}
}

func TestApplyEmptyArrayClearsChildren(t *testing.T) {
	s := NewStore()
	mustApply(t, s, Event{
		Kind:     KindTasks,
		ParentID: "L1",
		Payload:  `{"tasks": [{"id": "T1", "name": "doomed"}]}`,
	})
	mustApply(t, s, Event{
		Kind:     KindTasks,
		ParentID: "L1",
		Payload:  `{"tasks": []}`,
	})

	snap := s.Snapshot()
	if len(snap.Tasks) != 0 {
		t.Errorf("Tasks = %+v, want empty after empty-array fetch", snap.Tasks)
	}
	if !snap.TasksFetched["L1"] {
		t.Error("empty array still means the list was fetched")
	}
}

func TestApplyAbsentFieldIsNoOp(t *testing.T) {
	s := NewStore()
	mustApply(t, s, Event{
		Kind:     KindTasks,
		ParentID: "L1",
		Payload:  `{"tasks": [{"id": "T1", "name": "kept"}]}`,
	})
	// No tasks key at all: nothing merged, fetch markers untouched.
	mustApply(t, s, Event{
		Kind:     KindTasks,
		ParentID: "L2",
		Payload:  `{"message": "nothing here"}`,
	})

	snap := s.Snapshot()
	if _, ok := snap.Tasks["T1"]; !ok {
		t.Error("T1 should survive an event with no tasks field")
	}
	if snap.TasksFetched["L2"] {
		t.Error("absent field must not mark L2 as fetched")
	}
}

func TestApplyMutationUpsertsWithoutSupersession(t *testing.T) {
	s := NewStore()
	mustApply(t, s, Event{
		Kind:     KindTasks,
		ParentID: "L1",
		Payload:  `{"tasks": [{"id": "T1", "name": "first", "list": {"id": "L1"}}]}`,
	})
	// Create/update events carry no parent: siblings must survive.
	mustApply(t, s, Event{
		Kind:    KindTasks,
		Payload: `{"tasks": [{"id": "T2", "name": "created", "list": {"id": "L1"}}]}`,
	})

	snap := s.Snapshot()
	if len(snap.Tasks) != 2 {
		t.Fatalf("Tasks = %+v, want both T1 and T2", snap.Tasks)
	}
	if snap.Tasks["T2"].ListID != "L1" {
		t.Errorf("T2 ListID = %q, want lifted L1", snap.Tasks["T2"].ListID)
	}
}

func TestApplyDuplicateIDLastWins(t *testing.T) {
	s := NewStore()
	mustApply(t, s, Event{
		Kind:    KindSpaces,
		Payload: `{"spaces": [{"id": "S1", "name": "first"}, {"id": "S1", "name": "second"}]}`,
	})

	if got := s.Snapshot().Spaces["S1"].Name; got != "second" {
		t.Errorf("S1 name = %q, want second (last occurrence wins)", got)
	}
}

func TestApplyAcceptedShapes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"bare array", `[{"id": "S1", "name": "bare"}]`},
		{"kind-named key", `{"spaces": [{"id": "S1", "name": "keyed"}]}`},
		{"one level deep", `{"data": {"spaces": [{"id": "S1", "name": "nested"}]}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStore()
			mustApply(t, s, Event{Kind: KindSpaces, Payload: tc.payload})
			if _, ok := s.Snapshot().Spaces["S1"]; !ok {
				t.Errorf("S1 not merged from shape %q", tc.payload)
			}
		})
	}
}

func TestApplyMalformedNeverPartiallyMerges(t *testing.T) {
	s := NewStore()
	mustApply(t, s, Event{
		Kind:    KindSpaces,
		Payload: `{"spaces": [{"id": "S1", "name": "stable"}]}`,
	})
	before := s.Snapshot()

	// Second item has no id: the whole event must be rejected.
	err := s.Apply(context.Background(), Event{
		Kind:    KindSpaces,
		Payload: `{"spaces": [{"id": "S2", "name": "ok"}, {"name": "no id"}]}`,
	})

	var malformed *MalformedPayloadError
	if !errors.As(err, &malformed) {
		t.Fatalf("Apply() error = %v, want *MalformedPayloadError", err)
	}
	after := s.Snapshot()
	if after != before {
		t.Error("snapshot pointer changed despite rejected event")
	}
	if _, ok := after.Spaces["S2"]; ok {
		t.Error("S2 leaked into the snapshot from a rejected event")
	}
}

func TestApplyGarbagePayload(t *testing.T) {
	s := NewStore()
	err := s.Apply(context.Background(), Event{Kind: KindTasks, Payload: `{{{`})
	var malformed *MalformedPayloadError
	if !errors.As(err, &malformed) {
		t.Fatalf("Apply() error = %v, want *MalformedPayloadError", err)
	}
}

func TestApplyUnknownKind(t *testing.T) {
	s := NewStore()
	if err := s.Apply(context.Background(), Event{Kind: "folders", Payload: `[]`}); err == nil {
		t.Error("Apply() should reject unknown resource kinds")
	}
}

func TestRemove(t *testing.T) {
	s := NewStore()
	mustApply(t, s, Event{
		Kind:     KindTasks,
		ParentID: "L1",
		Payload:  `{"tasks": [{"id": "T1", "name": "doomed"}, {"id": "T2", "name": "kept"}]}`,
	})

	s.Remove(KindTasks, "T1")

	snap := s.Snapshot()
	if _, ok := snap.Tasks["T1"]; ok {
		t.Error("T1 should be gone after Remove")
	}
	if _, ok := snap.Tasks["T2"]; !ok {
		t.Error("T2 should survive Remove of T1")
	}
}

func TestTree(t *testing.T) {
	s := NewStore()
	mustApply(t, s, Event{
		Kind:    KindSpaces,
		Payload: `{"spaces": [{"id": "S1", "name": "Engineering"}]}`,
	})
	mustApply(t, s, Event{
		Kind:     KindLists,
		ParentID: "S1",
		Payload:  `{"lists": [{"id": "L2", "name": "Sprint", "orderindex": 2}, {"id": "L1", "name": "Backlog", "orderindex": 1}]}`,
	})
	mustApply(t, s, Event{
		Kind:     KindTasks,
		ParentID: "L1",
		Payload:  `{"tasks": [{"id": "T1", "name": "zeta"}, {"id": "T2", "name": "alpha"}]}`,
	})
	// Orphan: parent list never seen, excluded from the tree.
	mustApply(t, s, Event{
		Kind:     KindTasks,
		ParentID: "L99",
		Payload:  `{"tasks": [{"id": "T9", "name": "orphan"}]}`,
	})

	tree := s.Snapshot().Tree()
	if !tree.Fetched || len(tree.Spaces) != 1 {
		t.Fatalf("tree = %+v", tree)
	}

	space := tree.Spaces[0]
	if !space.Fetched || len(space.Lists) != 2 {
		t.Fatalf("space node = %+v", space)
	}
	if space.Lists[0].ID != "L1" || space.Lists[1].ID != "L2" {
		t.Errorf("lists out of order: %s, %s", space.Lists[0].ID, space.Lists[1].ID)
	}

	backlog := space.Lists[0]
	if !backlog.Fetched || len(backlog.Tasks) != 2 {
		t.Fatalf("backlog node = %+v", backlog)
	}
	if backlog.Tasks[0].Name != "alpha" {
		t.Errorf("tasks should be sorted by name, got %q first", backlog.Tasks[0].Name)
	}

	sprint := space.Lists[1]
	if sprint.Fetched {
		t.Error("Sprint was never fetched")
	}
	if len(sprint.Tasks) != 0 {
		t.Errorf("Sprint tasks = %+v, want empty", sprint.Tasks)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := NewStore()
	mustApply(t, s, Event{Kind: KindSpaces, Payload: `{"spaces": [{"id": "S1", "name": "v1"}]}`})
	old := s.Snapshot()
	mustApply(t, s, Event{Kind: KindSpaces, Payload: `{"spaces": [{"id": "S1", "name": "v2"}]}`})

	if old.Spaces["S1"].Name != "v1" {
		t.Error("published snapshot mutated by a later Apply")
	}
	if s.Snapshot().Version != old.Version+1 {
		t.Errorf("Version = %d, want %d", s.Snapshot().Version, old.Version+1)
	}
}
