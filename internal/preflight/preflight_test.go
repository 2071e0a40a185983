package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ipcpair/internal/ipcchan"
	"ipcpair/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckRendezvous_LeavesNothingBehind(t *testing.T) {
	dir := testsupport.ShortTempDir(t)
	result := CheckRendezvous(dir, "")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("probe left %d entries behind", len(entries))
	}
}

func TestCheckRendezvous_NameInUse(t *testing.T) {
	dir := testsupport.ShortTempDir(t)
	srv, err := ipcchan.NewOneShotServer(ipcchan.ServerOptions{Dir: dir, Name: "busy"})
	if err != nil {
		t.Fatalf("NewOneShotServer: %v", err)
	}
	defer srv.Close()

	result := CheckRendezvous(dir, "busy")
	if result.Passed || !strings.Contains(result.Detail, "held by another session") {
		t.Fatalf("expected name-in-use failure, got %+v", result)
	}
}

func TestCheckRendezvous_PathTooLong(t *testing.T) {
	result := CheckRendezvous(testsupport.ShortTempDir(t), strings.Repeat("n", 120))
	if result.Passed {
		t.Fatal("expected failure for an over-long socket path")
	}
}

func TestCheckChannel(t *testing.T) {
	if result := CheckChannel(); !result.Passed {
		t.Fatalf("expected channel probe to pass: %s", result.Detail)
	}
}

func TestCheckExecutable(t *testing.T) {
	self, err := os.Executable()
	if err != nil {
		t.Fatal(err)
	}
	if result := CheckExecutable("self", self); !result.Passed {
		t.Fatalf("expected pass for test binary: %s", result.Detail)
	}
	if result := CheckExecutable("missing", "ipcpair-definitely-not-installed"); result.Passed {
		t.Fatal("expected failure for missing binary")
	}
	if result := CheckExecutable("blank", " "); result.Passed || result.Detail != "command not configured" {
		t.Fatalf("unexpected blank result %+v", result)
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	results := RunAll(cfg)
	if len(results) != 3 {
		t.Fatalf("expected 3 checks without a child executable, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}

	cfg.Session.ChildExecutable = filepath.Join(t.TempDir(), "absent")
	results = RunAll(cfg)
	if len(results) != 4 || len(Failed(results)) != 1 {
		t.Fatalf("expected one failing executable check, got %+v", results)
	}
	if RunAll(nil) != nil {
		t.Fatal("nil config should yield no results")
	}
}
