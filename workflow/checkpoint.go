package workflow

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"
	"time"
)

// QueuedEnvelope is one message waiting in a recipient's inbox for the
// next superstep, as captured in RunnerState.
type QueuedEnvelope struct {
	RecipientID string
	Envelope    Envelope
}

// RunnerState is the scheduler-owned portion of checkpoint state: what
// has been queued but not yet delivered (spec §4.5).
type RunnerState struct {
	Queued            []QueuedEnvelope
	OutstandingByPort map[string][]ExternalRequest
	QueuedResponses   []ExternalResponse
}

// Checkpoint is a durable snapshot of one run at a superstep boundary
// (spec §4.5), sufficient to resume execution with no observable
// difference from having never stopped.
type Checkpoint struct {
	RunID               string
	StepNumber          int
	WorkflowFingerprint string

	RunnerState RunnerState
	ScopeState  map[scopeKey]any
	EdgeState   map[int]map[string]any // edge index -> fan-in partial buffer

	RNGSeed int64

	IdempotencyKey string
	Timestamp      time.Time
	Label          string
}

// computeIdempotencyKey hashes (runID, stepNumber, sorted queued
// recipients, sorted scope keys; scope values are not hashed) so that
// committing the same logical
// checkpoint twice (e.g. after a retried step) is detectable (ported
// from the teacher's checkpoint idempotency-key scheme).
func computeIdempotencyKey(runID string, step int, cp *Checkpoint) string {
	h := sha256.New()
	h.Write([]byte(runID))
	var stepBuf [8]byte
	binary.BigEndian.PutUint64(stepBuf[:], uint64(step))
	h.Write(stepBuf[:])

	recipients := make([]string, len(cp.RunnerState.Queued))
	for i, q := range cp.RunnerState.Queued {
		recipients[i] = q.RecipientID
	}
	sort.Strings(recipients)
	for _, r := range recipients {
		h.Write([]byte(r))
	}

	keys := make([]string, 0, len(cp.ScopeState))
	for k := range cp.ScopeState {
		keys = append(keys, k.Scope+"\x00"+k.Key)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
	}

	return "sha256:" + hex.EncodeToString(h.Sum(nil))
}

// ScopeEntry is the wire-friendly (scope, key, value) projection of one
// ScopeState entry. scopeKey is unexported so a persistence backend in
// another package cannot construct it directly; ScopeEntries/NewScopeState
// are the supported way to round-trip ScopeState through storage.
type ScopeEntry struct {
	Scope string
	Key   string
	Value any
}

// ScopeEntries flattens a Checkpoint's ScopeState into a slice sorted by
// scope then key, suitable for JSON encoding by a CheckpointManager backend.
func ScopeEntries(m map[scopeKey]any) []ScopeEntry {
	out := make([]ScopeEntry, 0, len(m))
	for k, v := range m {
		out = append(out, ScopeEntry{Scope: k.Scope, Key: k.Key, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Scope != out[j].Scope {
			return out[i].Scope < out[j].Scope
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// NewScopeState rebuilds a Checkpoint's ScopeState from ScopeEntry values,
// the inverse of ScopeEntries.
func NewScopeState(entries []ScopeEntry) map[scopeKey]any {
	out := make(map[scopeKey]any, len(entries))
	for _, e := range entries {
		out[scopeKey{Scope: e.Scope, Key: e.Key}] = e.Value
	}
	return out
}

// CheckpointManager persists and retrieves Checkpoint values, keyed by
// run id and an opaque checkpoint id it assigns on commit (spec §4.5).
// Implementations live in workflow/store.
type CheckpointManager interface {
	// Commit writes checkpoint and returns a stable checkpoint id.
	Commit(ctx context.Context, runID string, checkpoint Checkpoint) (checkpointID string, err error)

	// Lookup retrieves a previously committed checkpoint by id. Returns
	// ErrCheckpointNotFound if runID/checkpointID is unknown.
	Lookup(ctx context.Context, runID, checkpointID string) (Checkpoint, error)

	// List returns checkpoint ids committed for runID, oldest first.
	List(ctx context.Context, runID string) ([]string, error)
}
