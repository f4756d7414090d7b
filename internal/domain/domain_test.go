package domain

import (
	"path/filepath"
	"testing"
)

func TestTypeForExt(t *testing.T) {
	tests := []struct {
		ext      string
		expected TestType
		ok       bool
	}{
		{".sh", TypeShell, true},
		{".ps1", TypePowerShell, true},
		{".bat", TypeBatch, true},
		{".cmd", TypeBatch, true},
		{".c", TypeC, true},
		{".js", TypeJavaScript, true},
		{".ts", TypeTypeScript, true},
		{".py", TypePython, true},
		{".go", TypeGo, true},
		{".es", TypeEjs, true},
		{".C", TypeC, true},
		{".txt", TypeUnknown, false},
		{"", TypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			got, ok := TypeForExt(tt.ext)
			if ok != tt.ok || got != tt.expected {
				t.Errorf("TypeForExt(%q) = %v, %v; expected %v, %v", tt.ext, got, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestNewTestFile(t *testing.T) {
	root := filepath.FromSlash("/project")
	path := filepath.FromSlash("/project/unit/math.tst.c")

	f := NewTestFile(root, path, TypeC, ".testme")

	if f.Name != "math.tst.c" {
		t.Errorf("expected name math.tst.c, got %s", f.Name)
	}
	if f.Ext != ".c" {
		t.Errorf("expected ext .c, got %s", f.Ext)
	}
	if f.Dir != filepath.FromSlash("/project/unit") {
		t.Errorf("unexpected dir %s", f.Dir)
	}
	if f.ArtifactDir != filepath.FromSlash("/project/unit/.testme/math.tst") {
		t.Errorf("unexpected artifact dir %s", f.ArtifactDir)
	}
	if f.RelPath != "unit/math.tst.c" {
		t.Errorf("unexpected relative path %s", f.RelPath)
	}
	if f.BaseName() != "math.tst" {
		t.Errorf("unexpected base name %s", f.BaseName())
	}
	if f.Stem() != "math" {
		t.Errorf("unexpected stem %s", f.Stem())
	}
}

func TestSummary_Add(t *testing.T) {
	var s Summary
	s.Add(GroupResult{
		ConfigDir: "/a",
		State:     StateDone,
		Results: []TestResult{
			{Status: StatusPassed},
			{Status: StatusFailed},
			{Status: StatusError},
		},
	})
	s.Add(GroupResult{ConfigDir: "/b", State: StateSkipped, Results: []TestResult{{Status: StatusSkipped}}})

	if s.Total != 4 || s.Passed != 1 || s.Failed != 1 || s.Errors != 1 || s.Skipped != 1 {
		t.Errorf("unexpected counters %+v", s)
	}
	if s.Success() {
		t.Error("summary with failures should not succeed")
	}
	if len(s.Results()) != 4 {
		t.Errorf("expected 4 results, got %d", len(s.Results()))
	}

	var ok Summary
	ok.Add(GroupResult{Results: []TestResult{{Status: StatusPassed}}})
	if !ok.Success() {
		t.Error("all passed should succeed")
	}
	ok.Add(GroupResult{Error: "prep failed"})
	if ok.Success() {
		t.Error("group error should fail the run")
	}
}

func TestStatus_String(t *testing.T) {
	if StatusPassed.String() != "passed" || StatusError.String() != "error" {
		t.Error("unexpected status names")
	}
	text, _ := TypeTypeScript.MarshalText()
	if string(text) != "typescript" {
		t.Errorf("unexpected type text %s", text)
	}
}

func TestTextRoundTrip(t *testing.T) {
	var s Status
	if err := s.UnmarshalText([]byte("skipped")); err != nil || s != StatusSkipped {
		t.Errorf("expected skipped, got %v (%v)", s, err)
	}
	if err := s.UnmarshalText([]byte("bogus")); err == nil {
		t.Error("expected error for unknown status")
	}

	var tt TestType
	if err := tt.UnmarshalText([]byte("ejscript")); err != nil || tt != TypeEjs {
		t.Errorf("expected ejscript, got %v (%v)", tt, err)
	}
}
