package cli

import (
	"bytes"
	"encoding/json"
	"testing"
)

type table struct{}

func (table) Records() ([]string, [][]string) {
	return []string{"resource", "usage"}, [][]string{
		{"bigquery.bytes", "85000000"},
		{"ai.tokens", "12,5"},
	}
}

func (table) String() string { return "2 resources" }

func TestTextFormatter(t *testing.T) {
	formatter := &TextFormatter{}

	output, err := formatter.Format(table{})
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if string(output) != "2 resources\n" {
		t.Errorf("Format() = %q, want %q", string(output), "2 resources\n")
	}

	buf := &bytes.Buffer{}
	if err := formatter.FormatTo(buf, "test message"); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if buf.String() != "test message\n" {
		t.Errorf("FormatTo() = %q", buf.String())
	}
}

func TestJSONFormatter(t *testing.T) {
	data := map[string]any{"id": "r-1", "uptime_seconds": 90.5}

	for _, indent := range []bool{false, true} {
		formatter := &JSONFormatter{Indent: indent}

		output, err := formatter.Format(data)
		if err != nil {
			t.Fatalf("Format() error = %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(output, &decoded); err != nil {
			t.Fatalf("invalid JSON %q: %v", output, err)
		}
		if decoded["id"] != "r-1" {
			t.Errorf("decoded = %v", decoded)
		}
		if indent != bytes.Contains(output, []byte("\n  ")) {
			t.Errorf("indent=%v output %q", indent, output)
		}
	}
}

func TestCSVFormatter(t *testing.T) {
	formatter := &CSVFormatter{}

	output, err := formatter.Format(table{})
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	expected := "resource,usage\nbigquery.bytes,85000000\nai.tokens,\"12,5\"\n"
	if string(output) != expected {
		t.Errorf("Format() = %q, want %q", output, expected)
	}

	if _, err := formatter.Format("plain"); err == nil {
		t.Error("expected error for non-Recorder value")
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format OutputFormat
		want   Formatter
	}{
		{FormatText, &TextFormatter{}},
		{FormatJSON, &JSONFormatter{Indent: true}},
		{FormatCSV, &CSVFormatter{}},
		{"unknown", &TextFormatter{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			got := NewFormatter(tt.format)
			switch want := tt.want.(type) {
			case *JSONFormatter:
				if g, ok := got.(*JSONFormatter); !ok || g.Indent != want.Indent {
					t.Errorf("NewFormatter(%q) = %#v", tt.format, got)
				}
			case *CSVFormatter:
				if _, ok := got.(*CSVFormatter); !ok {
					t.Errorf("NewFormatter(%q) = %#v", tt.format, got)
				}
			case *TextFormatter:
				if _, ok := got.(*TextFormatter); !ok {
					t.Errorf("NewFormatter(%q) = %#v", tt.format, got)
				}
			}
		})
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"json", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"yaml", "", true},
	}

	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOutputFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
