// Package bulk deletes many items in one store call and announces the change.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/ramonehamilton/mtg-binder/internal/apperr"
	"github.com/ramonehamilton/mtg-binder/internal/events"
	"github.com/ramonehamilton/mtg-binder/internal/selection"
	"github.com/ramonehamilton/mtg-binder/internal/storage/repository"
)

// ErrDeleteInFlight is reported when a delete is requested while another one
// from the same Mutator has not resolved.
var ErrDeleteInFlight = errors.New("delete already in progress")

// State is the lifecycle of the most recent delete request.
type State int32

const (
	StateIdle State = iota
	StateSubmitted
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitted:
		return "submitted"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Result is what the presentation layer renders after a delete.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Deleted int64  `json:"deleted"`
	Err     error  `json:"-"`
}

// Config configures a Mutator.
type Config struct {
	// Store performs the delete-where-id-in call.
	Store repository.Deleter

	// Path is the collection path announced on success (e.g., "/decks").
	Path string

	// Dispatcher receives the invalidation event. Optional.
	Dispatcher events.Dispatcher

	// Logger for delete outcomes. Defaults to slog.Default().
	Logger *slog.Logger
}

// Mutator runs bulk deletes for one selection scope. A request moves
// Idle → Submitted → Succeeded|Failed; while Submitted, further requests are
// rejected with ErrDeleteInFlight.
type Mutator struct {
	store      repository.Deleter
	path       string
	dispatcher events.Dispatcher
	logger     *slog.Logger
	state      atomic.Int32
}

// NewMutator creates a Mutator.
func NewMutator(cfg Config) *Mutator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Mutator{
		store:      cfg.Store,
		path:       cfg.Path,
		dispatcher: cfg.Dispatcher,
		logger:     logger,
	}
}

// State returns the state of the most recent request.
func (m *Mutator) State() State {
	return State(m.state.Load())
}

// Path returns the collection path this Mutator invalidates.
func (m *Mutator) Path() string {
	return m.path
}

// DeleteMany deletes ids in a single store call. An empty set succeeds
// without touching the store. Deleting absent ids is not an error, so
// repeating a successful call succeeds again.
//
// Once submitted, the store call is not cancelled by ctx; a caller that goes
// away only loses the result. On success one invalidation event is
// dispatched for the collection path.
func (m *Mutator) DeleteMany(ctx context.Context, ids []string) Result {
	if len(ids) == 0 {
		return Result{Success: true, Message: "nothing to delete"}
	}

	if !m.submit() {
		m.logger.Warn("rejected bulk delete", "path", m.path, "error", ErrDeleteInFlight)
		return Result{Success: false, Message: ErrDeleteInFlight.Error(), Err: ErrDeleteInFlight}
	}

	storeCtx := context.WithoutCancel(ctx)
	deleted, err := m.callStore(storeCtx, ids)
	if err != nil {
		m.state.Store(int32(StateFailed))
		if apperr.CodeOf(err) == "" {
			err = apperr.Wrap(apperr.CodeWriteFailure, "delete failed", err)
		}
		m.logger.Error("bulk delete failed", "path", m.path, "requested", len(ids), "error", err)
		return Result{
			Success: false,
			Message: fmt.Sprintf("failed to delete %d items: %v", len(ids), err),
			Err:     err,
		}
	}

	m.state.Store(int32(StateSucceeded))
	m.logger.Info("bulk delete succeeded", "path", m.path, "requested", len(ids), "deleted", deleted)

	if m.dispatcher != nil {
		m.dispatcher.Dispatch(events.Invalidated(storeCtx, m.path, ids))
	}

	return Result{
		Success: true,
		Message: fmt.Sprintf("deleted %d of %d items", deleted, len(ids)),
		Deleted: deleted,
	}
}

// DeleteSelected deletes the selected ids and, on success only, removes them
// from set. A failed delete leaves the selection untouched so it can be retried.
func (m *Mutator) DeleteSelected(ctx context.Context, set *selection.Set) Result {
	ids := set.SelectedIDs()
	res := m.DeleteMany(ctx, ids)
	if res.Success {
		set.Remove(ids...)
	}
	return res
}

// callStore runs the store call. A panic leaves the Mutator Failed before it
// propagates, so later requests are not rejected forever.
func (m *Mutator) callStore(ctx context.Context, ids []string) (int64, error) {
	defer func() {
		if p := recover(); p != nil {
			m.state.Store(int32(StateFailed))
			m.logger.Error("bulk delete panicked", "path", m.path, "requested", len(ids), "panic", p)
			panic(p)
		}
	}()
	return m.store.DeleteWhereIDIn(ctx, ids)
}

// submit moves the Mutator to Submitted unless a request is already there.
func (m *Mutator) submit() bool {
	for {
		cur := m.state.Load()
		if State(cur) == StateSubmitted {
			return false
		}
		if m.state.CompareAndSwap(cur, int32(StateSubmitted)) {
			return true
		}
	}
}
