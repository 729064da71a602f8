package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	b, err := New(&buf, "info")
	if err != nil {
		t.Fatal(err)
	}
	log := b.Logger("GAME")
	log.Debugf("hidden")
	log.Infof("shown %d", 1)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line written at info level: %q", out)
	}
	if !strings.Contains(out, "GAME") || !strings.Contains(out, "shown 1") {
		t.Errorf("missing info line: %q", out)
	}

	if b.Logger("GAME") != log {
		t.Error("logger not reused for the same tag")
	}

	if err := b.SetLevel("debug"); err != nil {
		t.Fatal(err)
	}
	log.Debugf("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Error("SetLevel did not apply to existing logger")
	}
}

func TestUnknownLevel(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "loud"); err == nil {
		t.Fatal("expected error")
	}
}
