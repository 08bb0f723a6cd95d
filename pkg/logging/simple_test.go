package logging

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
)

// Test that if writer is nil, the logger defaults to os.Stdout.
func TestDefaultWriter(t *testing.T) {
	s := NewSimpleLogSink(nil, 1, true)
	if s.writer != os.Stdout {
		t.Errorf("expected default writer to be os.Stdout, got %v", s.writer)
	}
}

func TestEnabled(t *testing.T) {
	s := NewSimpleLogSink(&bytes.Buffer{}, DEBUG, false)
	assert.True(t, s.Enabled(INFO))
	assert.True(t, s.Enabled(DEBUG))
	assert.False(t, s.Enabled(TRACE))
}

func TestInfoLogging(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSimpleLogSink(buf, DEBUG, false)
	s.Info(INFO, "resolved path", "path", "/VIDEO_TS/VIDEO_TS.IFO")
	output := buf.String()

	assert.Equal(t, "[INFO] resolved path\n  path: /VIDEO_TS/VIDEO_TS.IFO\n", output)
}

// A log at a level higher than minVerbosity is not written.
func TestInfoNotLoggedWhenDisabled(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSimpleLogSink(buf, INFO, true)
	s.Info(DEBUG, "This should not be logged", "foo", "bar")
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestErrorLogging(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSimpleLogSink(buf, INFO, false)
	s.Error(errors.New("short read"), "read failed", "block", 256)
	output := buf.String()

	assert.Contains(t, output, "[ERROR] read failed")
	assert.Contains(t, output, "block: 256")
	assert.Contains(t, output, "error: short read")
}

func TestChainedWithName(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSimpleLogSink(buf, DEBUG, false)
	chain := s.WithName("dvd").WithName("udf")
	chain.Info(DEBUG, "walking")

	assert.Equal(t, "[DEBUG] [dvd.udf] walking\n", buf.String())
}

// Derived sinks keep the color and verbosity settings of their parent.
func TestWithValuesKeepsSettings(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSimpleLogSink(buf, TRACE, false)
	derived := s.WithValues("volume", "image").(*SimpleLogSink)

	assert.False(t, derived.useColor)
	assert.Equal(t, TRACE, derived.minVerbosity)

	derived.Info(TRACE, "descriptor", "tag", 2)
	assert.Equal(t, "[TRACE] descriptor\n  volume: image\n  tag: 2\n", buf.String())
}

// A key that isn't a string is replaced with a positional name.
func TestNonStringKey(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSimpleLogSink(buf, DEBUG, false)
	s.Info(INFO, "Non-string key", 123, "value")

	if !strings.Contains(buf.String(), "key0: value") {
		t.Errorf("expected output to contain 'key0: value', got %q", buf.String())
	}
}

func TestInitSetsCallDepth(t *testing.T) {
	s := NewSimpleLogSink(&bytes.Buffer{}, DEBUG, false)
	s.Init(logr.RuntimeInfo{CallDepth: 5})
	assert.Equal(t, 5, s.callDepth)
}

func TestNewSimpleLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewSimpleLogger(buf, DEBUG, false)
	logger.V(DEBUG).Info("cache miss", "path", "VTS_01_1.VOB")
	logger.V(TRACE).Info("hidden")

	assert.Equal(t, "[DEBUG] cache miss\n  path: VTS_01_1.VOB\n", buf.String())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, INFO, ParseLevel("info"))
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, TRACE, ParseLevel("trace"))
	assert.Equal(t, INFO, ParseLevel("loud"))
}
