package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"time"

	"mercator-hq/arbiter/pkg/audit"
	"mercator-hq/arbiter/pkg/caserecord"
)

// CSVExporter exports events to CSV. The detail payload is written as a
// JSON object in the last column.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Export writes events to w in CSV format.
func (e *CSVExporter) Export(ctx context.Context, events []*caserecord.Event, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(headerRow()); err != nil {
			return audit.NewExportError("csv", 0, err)
		}
	}

	for i, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := eventToRow(event)
		if err != nil {
			return audit.NewExportError("csv", i, err)
		}
		if err := writer.Write(row); err != nil {
			return audit.NewExportError("csv", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return audit.NewExportError("csv", len(events), err)
	}
	return nil
}

// headerRow returns the CSV header row.
func headerRow() []string {
	return []string{"id", "case_id", "event", "dedup_key", "timestamp", "details"}
}

// eventToRow converts an event to a CSV row.
func eventToRow(event *caserecord.Event) ([]string, error) {
	details := ""
	if len(event.Detail) > 0 {
		data, err := json.Marshal(event.Detail)
		if err != nil {
			return nil, err
		}
		details = string(data)
	}

	return []string{
		event.ID,
		event.CaseID,
		string(event.Kind),
		event.Key(),
		event.Timestamp.UTC().Format(time.RFC3339Nano),
		details,
	}, nil
}
