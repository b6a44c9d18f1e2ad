package export

import (
	"context"
	"encoding/json"
	"io"

	"mercator-hq/arbiter/pkg/audit"
	"mercator-hq/arbiter/pkg/caserecord"
)

// JSONExporter exports events as a JSON array.
type JSONExporter struct {
	// Pretty enables pretty-printing with indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes the events as a single JSON array. An empty timeline is
// written as "[]".
func (e *JSONExporter) Export(ctx context.Context, events []*caserecord.Event, w io.Writer) error {
	if events == nil {
		events = []*caserecord.Event{}
	}

	var (
		data []byte
		err  error
	)
	if e.Pretty {
		data, err = json.MarshalIndent(events, "", "  ")
	} else {
		data, err = json.Marshal(events)
	}
	if err != nil {
		return audit.NewExportError("json", 0, err)
	}

	if _, err := w.Write(data); err != nil {
		return audit.NewExportError("json", 0, err)
	}
	return nil
}

// JSONLinesExporter exports one JSON object per line, the layout of an
// append-only decision log.
type JSONLinesExporter struct{}

// NewJSONLinesExporter creates a new JSON Lines exporter.
func NewJSONLinesExporter() *JSONLinesExporter {
	return &JSONLinesExporter{}
}

// Export writes each event on its own line.
func (e *JSONLinesExporter) Export(ctx context.Context, events []*caserecord.Event, w io.Writer) error {
	enc := json.NewEncoder(w)
	for i, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(event); err != nil {
			return audit.NewExportError("jsonl", i, err)
		}
	}
	return nil
}
