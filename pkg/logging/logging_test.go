package logging

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"info", zapcore.InfoLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"warning", zapcore.WarnLevel},
		{" error ", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got, test.ShouldEqual, tt.want)
	}

	_, err := ParseLevel("verbose")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNew_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "run.log")
	logger, err := New(Config{Level: "debug", File: file})
	test.That(t, err, test.ShouldBeNil)

	logger.Debugw("cycle", "angular", 0.5)
	_ = logger.Sync()

	data, err := os.ReadFile(file)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldContainSubstring, "cycle")
	test.That(t, string(data), test.ShouldContainSubstring, "DEBUG")
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	test.That(t, err, test.ShouldNotBeNil)
}
