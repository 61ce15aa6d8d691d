package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/glennpratt/retry/types"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{"json lowercase", "json", FormatJSON, false},
		{"json uppercase", "JSON", FormatJSON, false},
		{"table", "table", FormatTable, false},
		{"yaml", "yaml", FormatYAML, false},
		{"empty", "", "", false},
		{"invalid", "xml", "", true},
		{"invalid with message", "csv", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFormat_InvalidErrorMessage(t *testing.T) {
	_, err := ParseFormat("xml")
	if err == nil {
		t.Fatal("expected error for invalid format")
	}
	if !strings.Contains(err.Error(), "json, table, or yaml") {
		t.Errorf("error message should mention valid formats, got: %v", err)
	}
}

func testReport() *types.RunReport {
	return &types.RunReport{
		Version: "0.7.0",
		RunID:   "01JXAMPLE0000000000000RUN1",
		Command: "sh -c false",
		Policy: types.PolicySummary{
			TimeoutMs: 5000,
			DelayMs:   1000,
			Until:     []int{0},
		},
		Attempts: []types.AttemptRecord{
			{RunID: "01JXAMPLE0000000000000RUN1", Seq: 1, Outcome: "exited", Code: 1, Stop: false},
			{RunID: "01JXAMPLE0000000000000RUN1", Seq: 2, Outcome: "exited", Code: 0, Stop: true},
		},
		FinalCode:  0,
		DurationMs: 1200,
	}
}

func TestRenderer_JSON_Report(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatJSON, &buf)

	if err := r.Render(testReport()); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	got := buf.String()
	for _, want := range []string{`"run_id"`, `"final_code"`, `"attempts"`, `"sh -c false"`} {
		if !strings.Contains(got, want) {
			t.Errorf("JSON output missing %s: %s", want, got)
		}
	}
}

func TestRenderer_YAML_Report(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatYAML, &buf)

	if err := r.Render(testReport()); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "run_id:") || !strings.Contains(got, "final_code:") {
		t.Errorf("YAML output missing expected keys: %s", got)
	}
}

func TestRenderer_Table_Struct(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, &buf)

	if err := r.Render(testReport()); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "command:") || !strings.Contains(got, "sh -c false") {
		t.Errorf("Table output missing command field: %s", got)
	}
	if !strings.Contains(got, "attempts:") || !strings.Contains(got, "[2 items]") {
		t.Errorf("Table output missing attempts summary: %s", got)
	}
}

func TestRenderer_Table_Slice(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, &buf)

	if err := r.Render(testReport().Attempts); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	got := buf.String()
	// Should have header row
	if !strings.Contains(got, "seq") || !strings.Contains(got, "code") {
		t.Errorf("Table output missing headers: %s", got)
	}
	// Should have data rows
	if !strings.Contains(got, "exited") {
		t.Errorf("Table output missing data: %s", got)
	}
}

func TestRenderer_Table_EmptySlice(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, &buf)

	data := []string{}
	if err := r.Render(data); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "(no results)") {
		t.Errorf("Empty slice should show '(no results)', got: %s", got)
	}
}

func TestRenderer_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(Format("csv"), &buf)

	if err := r.Render(testReport()); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
