package main

import (
	"bytes"
	"strings"
	"testing"

	"deedles.dev/wlt/internal/ipc"
)

func TestSetupLog(t *testing.T) {
	tests := []struct {
		level, format string
		ok            bool
	}{
		{"info", "text", true},
		{"debug", "json", true},
		{"warn", "", true},
		{"loud", "text", false},
		{"info", "xml", false},
	}
	for _, test := range tests {
		err := setupLog(test.level, test.format)
		if (err == nil) != test.ok {
			t.Errorf("setupLog(%q, %q) = %v", test.level, test.format, err)
		}
	}
	setupLog("info", "text")
}

func TestPrintState(t *testing.T) {
	var buf bytes.Buffer
	printState(&buf, ipc.State{
		Workspaces: []ipc.Workspace{
			{ID: 1, Name: "1", WindowCount: 2},
			{ID: 2, Name: "2"},
		},
		ActiveWorkspace: 1,
		FocusedWindow:   "foot",
	})

	want := "* 1\t2 windows\n  2\t0 windows\nfocused: foot\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestVersion(t *testing.T) {
	cmd := rootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"version"})
	err := cmd.Execute()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "wlt ") {
		t.Fatalf("got %q", buf.String())
	}
}
