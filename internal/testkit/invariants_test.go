package testkit

import (
	"strings"
	"testing"
)

func TestCheckTreeInvariants(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"empty", `[]`, ""},
		{"valid", `[{"type":"node","kind":"File","range":"0-10","children":[
			{"type":"value","property":"Operator","value":"+"},
			{"type":"token","property":"Name","value":"x","range":"4-5"}]}]`, ""},
		{"not array", `{}`, "not a JSON array"},
		{"two roots", `[{"type":"node","kind":"A","range":"0-1"},{"type":"node","kind":"B","range":"0-1"}]`, "2 roots"},
		{"value with range", `[{"type":"node","kind":"A","range":"0-1","children":[{"type":"value","property":"Operator","value":"+","range":"0-1"}]}]`, "has a range"},
		{"range past end", `[{"type":"node","kind":"A","range":"0-11"}]`, "outside"},
		{"reversed range", `[{"type":"node","kind":"A","range":"5-4"}]`, "outside"},
		{"no range", `[{"type":"node","kind":"A"}]`, "missing range"},
		{"empty children", `[{"type":"node","kind":"A","range":"0-1","children":[]}]`, "empty children"},
		{"token without value", `[{"type":"node","kind":"A","range":"0-1","children":[{"type":"token","property":"Name","range":"0-1"}]}]`, "without property or value"},
		{"unknown type", `[{"type":"leaf"}]`, "unexpected entry type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTreeInvariants([]byte(tt.doc), 10)
			switch {
			case tt.wantErr == "" && err != nil:
				t.Errorf("unexpected error: %v", err)
			case tt.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tt.wantErr)):
				t.Errorf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}
