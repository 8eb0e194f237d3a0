package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"polylab/internal/diag"
	"polylab/internal/source"
)

func TestJSON(t *testing.T) {
	fs, items := typeErrorFixture()
	tests := []struct {
		name      string
		opts      JSONOpts
		wantLine  uint32
		wantNotes int
	}{
		{"bytes only", JSONOpts{PathMode: PathModeBasename}, 0, 0},
		{"positions and notes", JSONOpts{PathMode: PathModeBasename, IncludePositions: true, IncludeNotes: true}, 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := JSON(&buf, items, fs, tt.opts); err != nil {
				t.Fatal(err)
			}
			var out DiagnosticsOutput
			if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
				t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
			}
			if out.Count != 1 {
				t.Fatalf("count = %d", out.Count)
			}
			d := out.Diagnostics[0]
			if d.Severity != "error" || d.Code != "SEM2001" || d.Title != "Type error" {
				t.Errorf("diagnostic = %+v", d)
			}
			if d.Location.File != "main.go" || d.Location.StartByte != 26 || d.Location.EndByte != 29 {
				t.Errorf("location = %+v", d.Location)
			}
			if d.Location.StartLine != tt.wantLine || len(d.Notes) != tt.wantNotes {
				t.Errorf("line = %d, notes = %d", d.Location.StartLine, len(d.Notes))
			}
			if tt.wantLine != 0 && (d.Location.StartCol != 13 || d.Location.EndCol != 16) {
				t.Errorf("columns = %d-%d", d.Location.StartCol, d.Location.EndCol)
			}
		})
	}
}

func TestJSON_Max(t *testing.T) {
	items := []diag.Diagnostic{
		diag.NewError(diag.SynParse, source.Span{}, "a"),
		diag.NewError(diag.SynParse, source.Span{}, "b"),
	}
	out := BuildDiagnosticsOutput(items, nil, JSONOpts{Max: 1})
	if out.Count != 1 || out.Diagnostics[0].Message != "a" || out.Diagnostics[0].Location.File != "<unknown>" {
		t.Errorf("output = %+v", out)
	}
}

func TestSarif(t *testing.T) {
	fs, items := typeErrorFixture()
	items = append(items, diag.New(diag.SevWarning, diag.EmitMissingDoc, source.Span{File: 0, Start: 0, End: 7}, "undocumented"))

	var buf bytes.Buffer
	if err := Sarif(&buf, items, fs, SarifRunMeta{ToolName: "polylab", ToolVersion: "1.0.0", InvocationArgs: []string{"compile"}}); err != nil {
		t.Fatal(err)
	}
	var log sarifLog
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatalf("invalid SARIF: %v", err)
	}
	if log.Version != "2.1.0" || len(log.Runs) != 1 {
		t.Fatalf("log = %+v", log)
	}
	run := log.Runs[0]
	if len(run.Results) != 2 || run.Results[0].Level != "error" || run.Results[1].Level != "warning" {
		t.Errorf("results = %+v", run.Results)
	}
	region := run.Results[0].Locations[0].PhysicalLocation.Region
	if region.StartLine != 3 || region.StartColumn != 13 || region.ByteLength != 3 {
		t.Errorf("region = %+v", region)
	}
	rules := run.Tool.Driver.Rules
	if len(rules) != 2 || rules[0].ID != "SEM2001" || rules[1].ID != "EMT3001" {
		t.Errorf("rules = %+v", rules)
	}
	if len(run.Invocations) != 1 || run.Invocations[0].ExecutionSuccessful {
		t.Errorf("invocations = %+v", run.Invocations)
	}
}
