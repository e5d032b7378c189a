package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/studysync/studysync/internal/config"
)

func TestSink_WritesBothDestinations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "sy.log")
	var stderr bytes.Buffer

	sink, err := NewSink(config.LogConfig{File: path, MaxSizeMB: 1}, Options{Stderr: &stderr})
	if err != nil {
		t.Fatalf("NewSink failed: %v", err)
	}
	sink.Logger("sync").Printf("created=%d", 2)
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if !strings.Contains(stderr.String(), "[sync] ") || !strings.Contains(stderr.String(), "created=2") {
		t.Errorf("stderr = %q", stderr.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "created=2") {
		t.Errorf("log file = %q", data)
	}
}

func TestSink_Quiet(t *testing.T) {
	var stderr bytes.Buffer
	sink, err := NewSink(config.LogConfig{}, Options{Quiet: true, Stderr: &stderr})
	if err != nil {
		t.Fatalf("NewSink failed: %v", err)
	}
	defer sink.Close()

	sink.Logger("daemon").Println("hello")
	if stderr.Len() != 0 {
		t.Errorf("quiet sink wrote %q", stderr.String())
	}
}
