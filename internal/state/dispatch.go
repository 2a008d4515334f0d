package state

import (
	"context"
	"log/slog"

	"taskdeck.app/agent/common/logger"
)

// Dispatcher is the single write path into the store. Each event is merged
// and, on success, the new snapshot is handed to the publish hook (the
// websocket hub in production). Malformed events are logged and dropped;
// they never abort the turn that produced them.
type Dispatcher struct {
	store   *Store
	publish func(*Snapshot)
}

func NewDispatcher(store *Store, publish func(*Snapshot)) *Dispatcher {
	return &Dispatcher{store: store, publish: publish}
}

func (d *Dispatcher) Store() *Store {
	return d.store
}

func (d *Dispatcher) Emit(ctx context.Context, evt Event) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component:    "state.dispatcher",
		ResourceKind: logger.Ptr(string(evt.Kind)),
	})

	if err := d.store.Apply(ctx, evt); err != nil {
		slog.WarnContext(ctx, "dropping state event", "error", err, "parent_id", evt.ParentID)
		return
	}

	if d.publish != nil {
		d.publish(d.store.Snapshot())
	}
}

// Drop removes an entity after a confirmed remote delete and publishes the
// resulting snapshot.
func (d *Dispatcher) Drop(ctx context.Context, kind ResourceKind, id string) {
	d.store.Remove(kind, id)
	if d.publish != nil {
		d.publish(d.store.Snapshot())
	}
}
