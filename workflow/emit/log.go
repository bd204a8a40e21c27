package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

// LogEmitter writes one line per event to an io.Writer, either as
// key=value text or as JSON.
type LogEmitter struct {
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter builds a LogEmitter. A nil writer defaults to os.Stdout.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{writer: writer, jsonMode: jsonMode}
}

func (l *LogEmitter) Emit(event Event) {
	if l.jsonMode {
		enc := json.NewEncoder(l.writer)
		_ = enc.Encode(event)
		return
	}
	fmt.Fprintf(l.writer, "[%s] runID=%s step=%d executorID=%s%s\n",
		event.Msg, event.RunID, event.Step, event.ExecutorID, formatMeta(event.Meta))
}

func (l *LogEmitter) EmitBatch(_ context.Context, events []Event) error {
	for _, e := range events {
		l.Emit(e)
	}
	return nil
}

func formatMeta(meta map[string]any) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for _, k := range keys {
		out += fmt.Sprintf(" %s=%v", k, meta[k])
	}
	return out
}
