package batch

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseStringOrArray(t *testing.T) {
	tests := []struct {
		name      string
		input     interface{}
		paramName string
		want      []string
		wantErr   bool
	}{
		{
			name:      "single path",
			input:     "app.Button.Render",
			paramName: "paths",
			want:      []string{"app.Button.Render"},
			wantErr:   false,
		},
		{
			name:      "array of paths",
			input:     []interface{}{"app.Button", "app.Title", "app.Version"},
			paramName: "paths",
			want:      []string{"app.Button", "app.Title", "app.Version"},
			wantErr:   false,
		},
		{
			name:      "nil input",
			input:     nil,
			paramName: "paths",
			want:      nil,
			wantErr:   true,
		},
		{
			name:      "empty string",
			input:     "",
			paramName: "paths",
			want:      nil,
			wantErr:   true,
		},
		{
			name:      "empty array",
			input:     []interface{}{},
			paramName: "paths",
			want:      nil,
			wantErr:   true,
		},
		{
			name:      "array with non-string",
			input:     []interface{}{"app.Button", 123, "app.Title"},
			paramName: "paths",
			want:      nil,
			wantErr:   true,
		},
		{
			name:      "array with empty string",
			input:     []interface{}{"app.Button", "", "app.Title"},
			paramName: "paths",
			want:      nil,
			wantErr:   true,
		},
		{
			name:      "invalid type",
			input:     123,
			paramName: "paths",
			want:      nil,
			wantErr:   true,
		},
		{
			name:      "JSON string array",
			input:     `["app.Button", "app.Title", "app.Version"]`,
			paramName: "paths",
			want:      []string{"app.Button", "app.Title", "app.Version"},
			wantErr:   false,
		},
		{
			name:      "JSON string single element array",
			input:     `["app.Button.Render"]`,
			paramName: "paths",
			want:      []string{"app.Button.Render"},
			wantErr:   false,
		},
		{
			name:      "JSON string array with empty element",
			input:     `["app.Button", ""]`,
			paramName: "paths",
			want:      nil,
			wantErr:   true,
		},
		{
			name:      "JSON string empty array",
			input:     `[]`,
			paramName: "paths",
			want:      nil,
			wantErr:   true,
		},
		{
			name:      "invalid JSON string",
			input:     `[invalid json`,
			paramName: "paths",
			want:      []string{`[invalid json`},
			wantErr:   false,
		},
		{
			name:      "string starting with bracket (not JSON)",
			input:     `[0].Items`,
			paramName: "paths",
			want:      []string{`[0].Items`},
			wantErr:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStringOrArray(tt.input, tt.paramName)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseStringOrArray() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && !stringSliceEqual(got, tt.want) {
				t.Errorf("ParseStringOrArray() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatResults(t *testing.T) {
	results := []Result{
		{ID: "app.Button", Status: "success", Result: `{"kind":"class"}`},
		{ID: "app.Title", Status: "success", Result: `{"kind":"constant"}`},
		{ID: "app.NoSuch", Status: "error", Error: "component not found"},
	}

	output := FormatResults(results)

	var br BatchResult
	if err := json.Unmarshal([]byte(output), &br); err != nil {
		t.Fatalf("Failed to parse output JSON: %v", err)
	}

	if br.Total != 3 {
		t.Errorf("Total = %d, want 3", br.Total)
	}
	if br.Successful != 2 {
		t.Errorf("Successful = %d, want 2", br.Successful)
	}
	if br.Failed != 1 {
		t.Errorf("Failed = %d, want 1", br.Failed)
	}
	if len(br.Results) != 3 {
		t.Errorf("len(Results) = %d, want 3", len(br.Results))
	}
}

func TestProcessBatch(t *testing.T) {
	paths := []string{"app.Button", "app.NoSuch", "app.Title"}

	// Lookup that fails on the unknown path
	fn := func(path string) (string, error) {
		if path == "app.NoSuch" {
			return "", errors.New("component \"app.NoSuch\" not found")
		}
		return "resolved " + path, nil
	}

	results := ProcessBatch(paths, fn)

	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}

	if results[0].Status != "success" {
		t.Errorf("results[0].Status = %s, want success", results[0].Status)
	}
	if results[0].Result != "resolved app.Button" {
		t.Errorf("results[0].Result = %s, want 'resolved app.Button'", results[0].Result)
	}

	if results[1].Status != "error" {
		t.Errorf("results[1].Status = %s, want error", results[1].Status)
	}
	if results[1].Error != "component \"app.NoSuch\" not found" {
		t.Errorf("results[1].Error = %s, want not-found message", results[1].Error)
	}

	if results[2].Status != "success" {
		t.Errorf("results[2].Status = %s, want success", results[2].Status)
	}
	if results[2].Result != "resolved app.Title" {
		t.Errorf("results[2].Result = %s, want 'resolved app.Title'", results[2].Result)
	}
}

func TestNewSuccessResult(t *testing.T) {
	result := NewSuccessResult("app.Button", "resolved")

	if result.ID != "app.Button" {
		t.Errorf("ID = %s, want app.Button", result.ID)
	}
	if result.Status != "success" {
		t.Errorf("Status = %s, want success", result.Status)
	}
	if result.Result != "resolved" {
		t.Errorf("Result = %s, want 'resolved'", result.Result)
	}
	if result.Error != "" {
		t.Errorf("Error should be empty, got %s", result.Error)
	}
}

func TestNewErrorResult(t *testing.T) {
	err := errors.New("component not found")
	result := NewErrorResult("app.NoSuch", err)

	if result.ID != "app.NoSuch" {
		t.Errorf("ID = %s, want app.NoSuch", result.ID)
	}
	if result.Status != "error" {
		t.Errorf("Status = %s, want error", result.Status)
	}
	if result.Error != "component not found" {
		t.Errorf("Error = %s, want 'component not found'", result.Error)
	}
	if result.Result != "" {
		t.Errorf("Result should be empty, got %s", result.Result)
	}
}

// Helper function to compare string slices
func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
