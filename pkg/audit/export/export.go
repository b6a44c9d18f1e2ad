package export

import (
	"context"
	"fmt"
	"io"

	"mercator-hq/arbiter/pkg/caserecord"
)

// Exporter writes audit events to w.
type Exporter interface {
	Export(ctx context.Context, events []*caserecord.Event, w io.Writer) error
}

// New returns the exporter for a format name: "json", "jsonl" or "csv".
func New(format string) (Exporter, error) {
	switch format {
	case "json":
		return NewJSONExporter(true), nil
	case "jsonl":
		return NewJSONLinesExporter(), nil
	case "csv":
		return NewCSVExporter(true), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (use json, jsonl or csv)", format)
	}
}
