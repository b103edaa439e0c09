package diag

import (
	"bytes"
	"strings"
	"testing"
)

func TestDebugLoggerEmitsDebug(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, true)
	log.Debug().Str("file", "a.py").Msg("parsed")
	if !strings.Contains(buf.String(), "parsed") {
		t.Errorf("debug message not emitted: %q", buf.String())
	}
}

func TestDefaultLoggerSuppressesDebug(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, false)
	log.Debug().Msg("noise")
	log.Info().Msg("also noise")
	if buf.Len() != 0 {
		t.Errorf("non-debug logger should stay quiet below warn: %q", buf.String())
	}
	log.Warn().Msg("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Errorf("warning not emitted: %q", buf.String())
	}
}
