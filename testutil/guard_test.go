package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

type recordingTB struct {
	testing.TB
	failed bool
	msg    string
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Fatalf(format string, _ ...any) {
	r.failed = true
	r.msg = format
}

func writeFile(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestAssertNoDirectImportsAllowsCleanPackage(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "clean.go", "package tmp\nimport \"fmt\"\nfunc X() { fmt.Println() }\n")

	rec := &recordingTB{TB: t}
	AssertNoDirectImports(rec, dir, InternalImportForbidden, "clean package")
	if rec.failed {
		t.Fatalf("clean package flagged: %s", rec.msg)
	}
}

func TestAssertNoDirectImportsFlagsForbiddenImport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dirty.go", "package tmp\nimport _ \"notations/internal/core\"\n")

	rec := &recordingTB{TB: t}
	AssertNoDirectImports(rec, dir, InternalImportForbidden, "no internal imports")
	if !rec.failed {
		t.Fatal("forbidden import not flagged")
	}
}

func TestAssertNoDirectImportsIgnoresTestFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "clean.go", "package tmp\n")
	writeFile(t, dir, "dirty_test.go", "package tmp\nimport _ \"notations/internal/core\"\n")

	rec := &recordingTB{TB: t}
	AssertNoDirectImports(rec, dir, InternalImportForbidden, "test files exempt")
	if rec.failed {
		t.Fatalf("test file import flagged: %s", rec.msg)
	}
}

func TestAssertNoTransitiveDependencyUsesListOutput(t *testing.T) {
	prev := listDeps
	listDeps = func(string) ([]byte, error) {
		return []byte("fmt\nnotations/internal/infra/blob/fs\n"), nil
	}
	defer func() { listDeps = prev }()

	rec := &recordingTB{TB: t}
	AssertNoTransitiveDependency(rec, "./...", InfraImportForbidden, "no infra deps")
	if !rec.failed {
		t.Fatal("infra dependency not flagged")
	}

	rec = &recordingTB{TB: t}
	AssertNoTransitiveDependency(rec, "./...", func(string) bool { return false }, "nothing forbidden")
	if rec.failed {
		t.Fatalf("clean dependency list flagged: %s", rec.msg)
	}
}

func TestPredicates(t *testing.T) {
	if !InternalImportForbidden("notations/internal/core") {
		t.Error("internal path not matched")
	}
	if InternalImportForbidden("notations/pkg/domain") {
		t.Error("domain path matched")
	}
	if !InfraImportForbidden("notations/internal/infra/persistence/sqlite") {
		t.Error("infra path not matched")
	}
	if InfraImportForbidden("notations/internal/blob") {
		t.Error("facade path matched")
	}
}
