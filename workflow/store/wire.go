package store

import (
	"encoding/json"
	"time"

	"github.com/flowmesh/workflow"
)

// checkpointWire is the JSON-safe projection of a workflow.Checkpoint.
// ScopeState is flattened from its unexported-key map into entries via
// workflow.ScopeEntries/NewScopeState; every other field already marshals
// with encoding/json's default struct/map/slice handling. Message and
// payload values nested inside RunnerState/EdgeState round-trip as
// generic JSON (numbers, strings, maps) rather than their original Go
// types — the same limitation a plain encoding/json Codec documents — since
// only Envelope/ExternalRequest carry a TypeID to decode precisely against,
// and a SQL row has no registry context at read time. Callers that need
// exact type fidelity across a restart should register their payload
// types with workflow/codec at the application layer and decode from the
// raw JSON themselves; this wire format optimizes for getting the
// scheduler's own bookkeeping back intact.
type checkpointWire struct {
	RunID               string
	StepNumber          int
	WorkflowFingerprint string

	RunnerState json.RawMessage
	ScopeState  []workflow.ScopeEntry
	EdgeState   map[int]map[string]any

	RNGSeed int64

	IdempotencyKey string
	Timestamp      time.Time
	Label          string
}

func toWire(cp workflow.Checkpoint) (checkpointWire, error) {
	runnerState, err := json.Marshal(cp.RunnerState)
	if err != nil {
		return checkpointWire{}, err
	}
	return checkpointWire{
		RunID:               cp.RunID,
		StepNumber:          cp.StepNumber,
		WorkflowFingerprint: cp.WorkflowFingerprint,
		RunnerState:         runnerState,
		ScopeState:          workflow.ScopeEntries(cp.ScopeState),
		EdgeState:           cp.EdgeState,
		RNGSeed:             cp.RNGSeed,
		IdempotencyKey:      cp.IdempotencyKey,
		Timestamp:           cp.Timestamp,
		Label:               cp.Label,
	}, nil
}

func fromWire(w checkpointWire) (workflow.Checkpoint, error) {
	var runnerState workflow.RunnerState
	if len(w.RunnerState) > 0 {
		if err := json.Unmarshal(w.RunnerState, &runnerState); err != nil {
			return workflow.Checkpoint{}, err
		}
	}
	return workflow.Checkpoint{
		RunID:               w.RunID,
		StepNumber:          w.StepNumber,
		WorkflowFingerprint: w.WorkflowFingerprint,
		RunnerState:         runnerState,
		ScopeState:          workflow.NewScopeState(w.ScopeState),
		EdgeState:           w.EdgeState,
		RNGSeed:             w.RNGSeed,
		IdempotencyKey:      w.IdempotencyKey,
		Timestamp:           w.Timestamp,
		Label:               w.Label,
	}, nil
}

func marshalCheckpoint(cp workflow.Checkpoint) ([]byte, error) {
	w, err := toWire(cp)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

func unmarshalCheckpoint(data []byte) (workflow.Checkpoint, error) {
	var w checkpointWire
	if err := json.Unmarshal(data, &w); err != nil {
		return workflow.Checkpoint{}, err
	}
	return fromWire(w)
}
