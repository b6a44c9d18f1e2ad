package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func sampleTable() *Table {
	return &Table{
		Headers: []string{"CASE", "STATE", "DECISION"},
		Rows: [][]string{
			{"APP-1", "FINAL", "APPROVE"},
			{"APP-2", "PENDING_HUMAN_REVIEW", "ESCALATE"},
		},
	}
}

// TestParseOutputFormat tests --output flag parsing.
func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{in: "", want: FormatText},
		{in: "text", want: FormatText},
		{in: "JSON", want: FormatJSON},
		{in: "csv", want: FormatCSV},
		{in: "yaml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOutputFormat(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseOutputFormat(%q) succeeded, want error", tt.in)
				}
				if ExitCode(err) != ExitUsage {
					t.Errorf("ExitCode() = %d, want %d", ExitCode(err), ExitUsage)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOutputFormat() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseOutputFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestTextFormatter tests column output of tables.
func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatText).FormatTo(&buf, sampleTable()); err != nil {
		t.Fatalf("FormatTo() failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "CASE") {
		t.Errorf("header line = %q", lines[0])
	}
	// tabwriter aligns the second column.
	if strings.Index(lines[1], "FINAL") != strings.Index(lines[2], "PENDING_HUMAN_REVIEW") {
		t.Errorf("columns not aligned:\n%s", buf.String())
	}
}

// TestTextFormatter_NonTabular tests the %v fallback.
func TestTextFormatter_NonTabular(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatText).FormatTo(&buf, "hello"); err != nil {
		t.Fatalf("FormatTo() failed: %v", err)
	}
	if buf.String() != "hello\n" {
		t.Errorf("FormatTo() wrote %q", buf.String())
	}
}

// TestJSONFormatter tests indented JSON output.
func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	data := map[string]any{"case_id": "APP-1", "state": "FINAL"}
	if err := NewFormatter(FormatJSON).FormatTo(&buf, data); err != nil {
		t.Fatalf("FormatTo() failed: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got["case_id"] != "APP-1" {
		t.Errorf("case_id = %v", got["case_id"])
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("expected indented output")
	}
}

// TestCSVFormatter tests CSV output and its Tabular requirement.
func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatCSV).FormatTo(&buf, sampleTable()); err != nil {
		t.Fatalf("FormatTo() failed: %v", err)
	}
	want := "CASE,STATE,DECISION\nAPP-1,FINAL,APPROVE\nAPP-2,PENDING_HUMAN_REVIEW,ESCALATE\n"
	if buf.String() != want {
		t.Errorf("FormatTo() = %q, want %q", buf.String(), want)
	}

	if err := NewFormatter(FormatCSV).FormatTo(&buf, map[string]string{}); err == nil {
		t.Error("FormatTo() accepted non-tabular data")
	}
}
