package logger

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"
)

// capture routes output to a buffer for the duration of the test.
func capture(t *testing.T, verboseMode bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(verboseMode)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t, false)
	if IsVerbose() {
		t.Fatal("verbose should start disabled")
	}
	SetVerbose(true)
	if !IsVerbose() {
		t.Fatal("SetVerbose(true) did not enable verbose mode")
	}
}

func TestLevels(t *testing.T) {
	scoped := Component("router")

	tests := []struct {
		name    string
		log     func(format string, args ...any)
		verbose bool
		want    string
	}{
		{"debug verbose", Debug, true, "[DEBUG] picked 2 of 3\n"},
		{"debug quiet", Debug, false, ""},
		{"info verbose", Info, true, "[INFO] picked 2 of 3\n"},
		{"info quiet", Info, false, ""},
		{"warn verbose", Warn, true, "[WARN] picked 2 of 3\n"},
		{"warn quiet", Warn, false, ""},
		{"error quiet", Error, false, "[ERROR] picked 2 of 3\n"},
		{"scoped debug", scoped.Debug, true, "[DEBUG] router: picked 2 of 3\n"},
		{"scoped info quiet", scoped.Info, false, ""},
		{"scoped warn", scoped.Warn, true, "[WARN] router: picked 2 of 3\n"},
		{"scoped error quiet", scoped.Error, false, "[ERROR] router: picked 2 of 3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t, tt.verbose)
			tt.log("picked %d of %d", 2, 3)
			if got := buf.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSection(t *testing.T) {
	buf := capture(t, false)
	Section("Source Search")
	if buf.Len() != 0 {
		t.Errorf("section printed in quiet mode: %q", buf.String())
	}

	SetVerbose(true)
	Section("Source Search")
	if got := buf.String(); got != "\n=== Source Search ===\n" {
		t.Errorf("unexpected section header %q", got)
	}
}

func TestConcurrentLogging(t *testing.T) {
	buf := capture(t, true)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			Component("invoker").Debug("attempt %d", i)
		}()
		go func() {
			defer wg.Done()
			SetVerbose(true)
		}()
	}
	wg.Wait()

	if n := strings.Count(buf.String(), "\n"); n != 20 {
		t.Errorf("expected 20 lines, got %d", n)
	}
}
