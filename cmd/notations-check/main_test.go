package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"notations/pkg/domain"
)

func writeSnapshot(t *testing.T, snap domain.Snapshot) string {
	t.Helper()
	payload, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestRunAcceptsSeedSnapshot(t *testing.T) {
	path := writeSnapshot(t, domain.Seed())
	var stdout, stderr bytes.Buffer

	code := run([]string{"-file", path}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit = %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "ok:") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunFlagsBrokenTree(t *testing.T) {
	snap := domain.Seed()
	root := snap.Stacks[snap.RootID]
	root.Children = append(root.Children, "ghost")
	snap.Stacks[snap.RootID] = root
	path := writeSnapshot(t, snap)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-file", path}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit = %d", code)
	}
	if !strings.Contains(stdout.String(), "tree_integrity") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunChecksConfiguredStore(t *testing.T) {
	t.Setenv("NOTATIONS_STORAGE_DRIVER", "memory")
	var stdout, stderr bytes.Buffer

	code := run(nil, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit = %d, stderr: %s", code, stderr.String())
	}
}

func TestRunRejectsMissingFileAndBadFlags(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-file", filepath.Join(t.TempDir(), "absent.json")}, &stdout, &stderr); code != 2 {
		t.Errorf("missing file exit = %d", code)
	}
	if code := run([]string{"-bogus"}, &stdout, &stderr); code != 2 {
		t.Errorf("bad flag exit = %d", code)
	}
}

func TestRunRejectsCorruptJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-file", path}, &stdout, &stderr); code != 2 {
		t.Errorf("corrupt file exit = %d", code)
	}
}
