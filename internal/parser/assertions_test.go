package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testme/internal/domain"
)

func TestAssertionParser_ParseTestCounts(t *testing.T) {
	p := NewAssertionParser()

	tests := []struct {
		name   string
		output string
		passed int
		failed int
	}{
		{"empty", "", 0, 0},
		{"marks", "✓ one\n✓ two\n  ✗ three\nplain line\n", 2, 1},
		{"colored", "\x1b[32m✓ green\x1b[0m\n", 1, 0},
		{"mark mid-line ignored", "result: ✓\n", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passed, failed := p.ParseTestCounts(domain.TestResult{Output: tt.output})
			assert.Equal(t, tt.passed, passed)
			assert.Equal(t, tt.failed, failed)
		})
	}
}

func TestAssertionParser_ParseFailure(t *testing.T) {
	p := NewAssertionParser()
	file := domain.TestFile{Name: "math.tst.c", Path: "/p/math.tst.c"}

	t.Run("assertion with expected and received", func(t *testing.T) {
		output := "✓ Basic equality\n" +
			"✗ Test failed at math.tst.c:12: sum at math.tst.c:12\n" +
			"Expected: 4\n" +
			"Received: 5\n"

		failures := p.ParseFailure(domain.TestResult{File: file, Status: domain.StatusFailed, Output: output})
		require.Len(t, failures, 1)
		f := failures[0]
		assert.Equal(t, "math.tst.c", f.TestName)
		assert.Equal(t, "/p/math.tst.c", f.FilePath)
		assert.Equal(t, "Test failed at math.tst.c:12: sum at math.tst.c:12", f.Message)
		assert.Equal(t, "math.tst.c", f.File)
		assert.Equal(t, 12, f.Line)
		assert.Equal(t, "4", f.Expected)
		assert.Equal(t, "5", f.Received)
	})

	t.Run("no marks falls back to output tail", func(t *testing.T) {
		failures := p.ParseFailure(domain.TestResult{File: file, Status: domain.StatusFailed, Output: "boom\n"})
		require.Len(t, failures, 1)
		assert.Equal(t, "boom", failures[0].Message)
	})

	t.Run("error text preferred over output", func(t *testing.T) {
		failures := p.ParseFailure(domain.TestResult{File: file, Status: domain.StatusError, Output: "x", Error: "compiler not found"})
		require.Len(t, failures, 1)
		assert.Equal(t, "compiler not found", failures[0].Message)
	})

	t.Run("passed has no failures", func(t *testing.T) {
		assert.Empty(t, p.ParseFailure(domain.TestResult{File: file, Status: domain.StatusPassed}))
	})
}
