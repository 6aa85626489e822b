package docstore

import "context"

// WriteOp identifies a single operation in a write plan.
type WriteOp int

const (
	OpSet WriteOp = iota
	OpUpdate
	OpDelete
	// OpCreate fails the whole plan with ErrExists if the path is occupied.
	OpCreate
)

// Write is one entry of an atomic write plan. Plans are built by pure
// functions outside the transaction body, so the body itself captures no
// mutable state.
type Write struct {
	Op     WriteOp
	Path   string
	Fields Fields
}

// Atomic applies cross-entity write plans as a single all-or-nothing unit.
// It is the only way invite, session and sitter-mapping documents are
// mutated together.
type Atomic struct {
	store Store
}

func NewAtomic(store Store) *Atomic {
	return &Atomic{store: store}
}

// Apply commits every write in the plan inside one transaction. On failure
// nothing is applied and the error is surfaced unmodified.
func (a *Atomic) Apply(ctx context.Context, plan []Write) error {
	if len(plan) == 0 {
		return nil
	}
	return a.store.RunTransaction(ctx, func(tx Tx) error {
		return ApplyWrites(ctx, tx, plan)
	})
}

// ApplyWrites executes a write plan against a transaction handle. It is the
// bridge between pure plan builders and the backend's transaction primitive.
func ApplyWrites(ctx context.Context, tx Tx, plan []Write) error {
	for _, w := range plan {
		var err error
		switch w.Op {
		case OpSet:
			err = tx.Set(ctx, w.Path, w.Fields)
		case OpUpdate:
			err = tx.Update(ctx, w.Path, w.Fields)
		case OpDelete:
			err = tx.Delete(ctx, w.Path)
		case OpCreate:
			err = tx.Create(ctx, w.Path, w.Fields)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Batch queues writes for a single atomic commit. Unlike a transaction there
// is no read-your-writes inside the batch; it is a blind write set capped at
// MaxBatchWrites.
type Batch struct {
	store Store
	plan  []Write
}

func (b *Batch) Set(path string, fields Fields) {
	b.plan = append(b.plan, Write{Op: OpSet, Path: path, Fields: fields})
}

func (b *Batch) Update(path string, fields Fields) {
	b.plan = append(b.plan, Write{Op: OpUpdate, Path: path, Fields: fields})
}

func (b *Batch) Delete(path string) {
	b.plan = append(b.plan, Write{Op: OpDelete, Path: path})
}

// Len reports the number of queued writes.
func (b *Batch) Len() int { return len(b.plan) }

// Commit applies all queued writes atomically.
func (b *Batch) Commit(ctx context.Context) error {
	if len(b.plan) > MaxBatchWrites {
		return ErrBatchTooLarge
	}
	if len(b.plan) == 0 {
		return nil
	}
	return b.store.RunTransaction(ctx, func(tx Tx) error {
		return ApplyWrites(ctx, tx, b.plan)
	})
}
