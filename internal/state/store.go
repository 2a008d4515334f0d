package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"taskdeck.app/agent/internal/clickup"
)

// ResourceKind names the entity collection an event targets.
type ResourceKind string

const (
	KindSpaces ResourceKind = "spaces"
	KindLists  ResourceKind = "lists"
	KindTasks  ResourceKind = "tasks"
)

func (k ResourceKind) Valid() bool {
	switch k {
	case KindSpaces, KindLists, KindTasks:
		return true
	}
	return false
}

// Event is a state-update emitted after a successful remote call.
//
// ParentID is set only on fetch events, where the payload is the complete
// child collection of that parent: merging then supersedes stale siblings.
// Mutation events leave ParentID empty and upsert without removal.
type Event struct {
	Kind     ResourceKind `json:"resource_kind"`
	ParentID string       `json:"parent_id,omitempty"`
	// Payload is raw tool output: a string (possibly using Python literal
	// conventions), raw JSON bytes, or an already-decoded value.
	Payload any `json:"payload"`
}

// Snapshot is an immutable view of everything fetched so far. Entities are
// held flat, keyed by id; parent linkage lives in back-reference fields.
// Never mutate a snapshot after it has been published.
type Snapshot struct {
	Spaces map[string]clickup.Space
	Lists  map[string]clickup.List
	Tasks  map[string]clickup.Task

	// Fetch markers distinguish "no children" from "never asked".
	SpacesFetched bool
	ListsFetched  map[string]bool // keyed by space id
	TasksFetched  map[string]bool // keyed by list id

	Version int64
}

// Store holds the current snapshot. Readers get a consistent snapshot via an
// atomic pointer load; writers serialize through Apply and publish by swapping
// in a freshly built snapshot. No partially merged state is ever observable.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
}

func NewStore() *Store {
	s := &Store{}
	s.current.Store(&Snapshot{
		Spaces:       map[string]clickup.Space{},
		Lists:        map[string]clickup.List{},
		Tasks:        map[string]clickup.Task{},
		ListsFetched: map[string]bool{},
		TasksFetched: map[string]bool{},
	})
	return s
}

// Snapshot returns the current published snapshot. Always non-nil.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Apply merges one event into the state. On any error the published snapshot
// is untouched; the caller decides whether to log and drop.
func (s *Store) Apply(ctx context.Context, evt Event) error {
	if !evt.Kind.Valid() {
		return &MalformedPayloadError{Err: fmt.Errorf("unknown resource kind %q", evt.Kind)}
	}

	value, err := decodePayload(evt.Payload)
	if err != nil {
		return err
	}

	items, found := extractItems(value, evt.Kind)
	if !found {
		// Tolerated shape with no recognizable collection: nothing to merge,
		// fetch markers stay untouched.
		slog.DebugContext(ctx, "state event carried no items", "resource_kind", evt.Kind)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.current.Load()
	next := prev.clone()

	switch evt.Kind {
	case KindSpaces:
		if err := mergeEntities(next.Spaces, items, evt.ParentID, spaceID, stampSpace); err != nil {
			return err
		}
		next.SpacesFetched = true
	case KindLists:
		if err := mergeEntities(next.Lists, items, evt.ParentID, listID, stampList); err != nil {
			return err
		}
		if evt.ParentID != "" {
			supersede(next.Lists, items, evt.ParentID, listID, func(l clickup.List) string { return l.SpaceID })
			next.ListsFetched[evt.ParentID] = true
		}
	case KindTasks:
		if err := mergeEntities(next.Tasks, items, evt.ParentID, taskID, stampTask); err != nil {
			return err
		}
		if evt.ParentID != "" {
			supersede(next.Tasks, items, evt.ParentID, taskID, func(t clickup.Task) string { return t.ListID })
			next.TasksFetched[evt.ParentID] = true
		}
	}

	next.Version = prev.Version + 1
	s.current.Store(next)
	return nil
}

// Remove drops a single entity by id, used after a confirmed remote delete.
// Removing a list or space does not cascade; orphaned children are left to
// the next fetch of their parent.
func (s *Store) Remove(kind ResourceKind, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.current.Load()
	next := prev.clone()

	switch kind {
	case KindSpaces:
		delete(next.Spaces, id)
	case KindLists:
		delete(next.Lists, id)
	case KindTasks:
		delete(next.Tasks, id)
	default:
		return
	}

	next.Version = prev.Version + 1
	s.current.Store(next)
}

func (s *Snapshot) clone() *Snapshot {
	next := &Snapshot{
		Spaces:        make(map[string]clickup.Space, len(s.Spaces)),
		Lists:         make(map[string]clickup.List, len(s.Lists)),
		Tasks:         make(map[string]clickup.Task, len(s.Tasks)),
		SpacesFetched: s.SpacesFetched,
		ListsFetched:  make(map[string]bool, len(s.ListsFetched)),
		TasksFetched:  make(map[string]bool, len(s.TasksFetched)),
		Version:       s.Version,
	}
	for k, v := range s.Spaces {
		next.Spaces[k] = v
	}
	for k, v := range s.Lists {
		next.Lists[k] = v
	}
	for k, v := range s.Tasks {
		next.Tasks[k] = v
	}
	for k, v := range s.ListsFetched {
		next.ListsFetched[k] = v
	}
	for k, v := range s.TasksFetched {
		next.TasksFetched[k] = v
	}
	return next
}

// decodePayload turns whatever the tool produced into a decoded JSON value.
func decodePayload(payload any) (any, error) {
	var raw []byte
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case string:
		canonical, err := Canonicalize(p)
		if err != nil {
			return nil, err
		}
		raw = canonical
	case []byte:
		canonical, err := Canonicalize(string(p))
		if err != nil {
			return nil, err
		}
		raw = canonical
	case json.RawMessage:
		canonical, err := Canonicalize(string(p))
		if err != nil {
			return nil, err
		}
		raw = canonical
	default:
		return p, nil
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, &MalformedPayloadError{Err: err}
	}
	return value, nil
}

// extractItems locates the entity collection inside a decoded payload.
// Accepted shapes: a bare array, an object with the kind-named key, or an
// object wrapping such an object one level deep. Absence of the key is not
// an error; it means the event carries nothing to merge.
func extractItems(value any, kind ResourceKind) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case map[string]any:
		if items, ok := arrayField(v, string(kind)); ok {
			return items, true
		}
		for _, inner := range v {
			if obj, ok := inner.(map[string]any); ok {
				if items, ok := arrayField(obj, string(kind)); ok {
					return items, true
				}
			}
		}
	}
	return nil, false
}

func arrayField(obj map[string]any, key string) ([]any, bool) {
	raw, ok := obj[key]
	if !ok {
		return nil, false
	}
	items, ok := raw.([]any)
	if !ok {
		// Present but null or non-array: treat as absent.
		return nil, false
	}
	return items, true
}

// mergeEntities decodes each item into T and upserts it by id. Later
// duplicates overwrite earlier ones. A single undecodable or id-less item
// poisons the whole event so no partial merge can happen.
func mergeEntities[T any](dst map[string]T, items []any, parentID string,
	idOf func(T) string, stamp func(*T, string)) error {
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return &MalformedPayloadError{Err: err}
		}
		var entity T
		if err := json.Unmarshal(raw, &entity); err != nil {
			return &MalformedPayloadError{Err: err}
		}
		if idOf(entity) == "" {
			return &MalformedPayloadError{Err: fmt.Errorf("item missing id: %s", raw)}
		}
		if parentID != "" {
			stamp(&entity, parentID)
		}
		dst[idOf(entity)] = entity
	}
	return nil
}

// supersede removes entities whose back-reference points at parentID but
// which are absent from the freshly fetched collection.
func supersede[T any](dst map[string]T, items []any, parentID string,
	idOf func(T) string, parentOf func(T) string) {
	keep := make(map[string]bool, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			if id, ok := obj["id"].(string); ok {
				keep[id] = true
			}
		}
	}
	for id, entity := range dst {
		if parentOf(entity) == parentID && !keep[id] {
			delete(dst, id)
		}
	}
}

func spaceID(s clickup.Space) string { return s.ID }
func listID(l clickup.List) string   { return l.ID }
func taskID(t clickup.Task) string   { return t.ID }

func stampSpace(*clickup.Space, string) {}

func stampList(l *clickup.List, parentID string) {
	if l.SpaceID == "" {
		l.SpaceID = parentID
	}
}

func stampTask(t *clickup.Task, parentID string) {
	if t.ListID == "" {
		t.ListID = parentID
	}
}

// SpaceNode, ListNode and Tree form the nested presentation view derived
// from the flat snapshot on demand.
type SpaceNode struct {
	clickup.Space
	Fetched bool       `json:"fetched"`
	Lists   []ListNode `json:"lists"`
}

type ListNode struct {
	clickup.List
	Fetched bool           `json:"fetched"`
	Tasks   []clickup.Task `json:"tasks"`
}

type Tree struct {
	Fetched bool        `json:"fetched"`
	Spaces  []SpaceNode `json:"spaces"`
}

// Tree assembles the nested hierarchy. Entities whose parent is unknown are
// omitted from the tree but remain in the flat snapshot.
func (s *Snapshot) Tree() Tree {
	tasksByList := make(map[string][]clickup.Task)
	for _, task := range s.Tasks {
		tasksByList[task.ListID] = append(tasksByList[task.ListID], task)
	}
	for _, tasks := range tasksByList {
		sort.Slice(tasks, func(i, j int) bool { return tasks[i].Name < tasks[j].Name })
	}

	listsBySpace := make(map[string][]ListNode)
	for _, list := range s.Lists {
		node := ListNode{
			List:    list,
			Fetched: s.TasksFetched[list.ID],
			Tasks:   tasksByList[list.ID],
		}
		if node.Tasks == nil {
			node.Tasks = []clickup.Task{}
		}
		listsBySpace[list.SpaceID] = append(listsBySpace[list.SpaceID], node)
	}
	for _, lists := range listsBySpace {
		sort.Slice(lists, func(i, j int) bool {
			if lists[i].OrderIndex != lists[j].OrderIndex {
				return lists[i].OrderIndex < lists[j].OrderIndex
			}
			return lists[i].Name < lists[j].Name
		})
	}

	tree := Tree{Fetched: s.SpacesFetched, Spaces: []SpaceNode{}}
	for _, space := range s.Spaces {
		node := SpaceNode{
			Space:   space,
			Fetched: s.ListsFetched[space.ID],
			Lists:   listsBySpace[space.ID],
		}
		if node.Lists == nil {
			node.Lists = []ListNode{}
		}
		tree.Spaces = append(tree.Spaces, node)
	}
	sort.Slice(tree.Spaces, func(i, j int) bool { return tree.Spaces[i].Name < tree.Spaces[j].Name })
	return tree
}
