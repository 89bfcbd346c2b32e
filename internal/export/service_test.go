package export

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"notations/internal/blob"
	"notations/internal/core"
	"notations/internal/infra/persistence/memory"
	"notations/pkg/domain"
)

func newService(t *testing.T) (*Service, domain.PersistentStore, blob.Store) {
	t.Helper()
	store := memory.New(core.NewDefaultRulesEngine())
	blobs := blob.NewMemory()
	svc := NewService(store, blobs, WithNowFunc(func() time.Time {
		return time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	}))
	return svc, store, blobs
}

func sheetByTitle(t *testing.T, store domain.PersistentStore, title string) domain.Sheet {
	t.Helper()
	for _, sh := range store.ListSheets() {
		if sh.Title == title {
			return sh
		}
	}
	t.Fatalf("sheet %q not found", title)
	return domain.Sheet{}
}

func TestSafeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Huckleberry Pie Recipe", "huckleberry_pie_recipe"},
		{"Notes (v2)!", "notes_v2_"},
		{"12-01-14", "12-01-14"},
		{"draft.final", "draft.final"},
		{"   ", "untitled"},
	}
	for _, tc := range cases {
		if got := SafeFilename(tc.in); got != tc.want {
			t.Errorf("SafeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExportSheetTextWritesBody(t *testing.T) {
	ctx := context.Background()
	svc, store, blobs := newService(t)
	pie := sheetByTitle(t, store, "Huckleberry Pie Recipe")

	info, err := svc.ExportSheetText(ctx, pie.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if info.Key != "exports/huckleberry_pie_recipe.txt" {
		t.Errorf("key = %q", info.Key)
	}

	_, rc, err := blobs.Get(ctx, info.Key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != pie.Body {
		t.Errorf("body mismatch: %q", body)
	}
}

func TestExportSheetTextOverwritesPreviousExport(t *testing.T) {
	ctx := context.Background()
	svc, store, blobs := newService(t)
	pie := sheetByTitle(t, store, "Huckleberry Pie Recipe")

	if _, err := svc.ExportSheetText(ctx, pie.ID); err != nil {
		t.Fatalf("first export: %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.SetSheetBody(pie.ID, "rewritten")
	}); err != nil {
		t.Fatalf("set body: %v", err)
	}
	info, err := svc.ExportSheetText(ctx, pie.ID)
	if err != nil {
		t.Fatalf("second export: %v", err)
	}

	_, rc, err := blobs.Get(ctx, info.Key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "rewritten" {
		t.Errorf("body = %q", body)
	}
}

func TestExportSheetTextUnknownSheet(t *testing.T) {
	svc, _, _ := newService(t)
	if _, err := svc.ExportSheetText(context.Background(), "missing"); !domain.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestExportSnapshotArchivesState(t *testing.T) {
	ctx := context.Background()
	svc, store, blobs := newService(t)

	info, err := svc.ExportSnapshot(ctx)
	if err != nil {
		t.Fatalf("export snapshot: %v", err)
	}
	if info.Key != "snapshots/20250615T103000Z.json" {
		t.Errorf("key = %q", info.Key)
	}

	_, rc, err := blobs.Get(ctx, info.Key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	var snapshot domain.Snapshot
	if err := json.NewDecoder(rc).Decode(&snapshot); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snapshot.RootID != store.RootID() {
		t.Errorf("root = %q", snapshot.RootID)
	}
	if len(snapshot.Sheets) != len(store.ListSheets()) {
		t.Errorf("sheets = %d, want %d", len(snapshot.Sheets), len(store.ListSheets()))
	}
}

func TestDeepLinkConstruction(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t)
	pie := sheetByTitle(t, store, "Huckleberry Pie Recipe")

	link, err := svc.DeepLinkForSheet(ctx, pie.ID)
	if err != nil {
		t.Fatalf("sheet link: %v", err)
	}
	if link != "notations://Food-Notes/Huckleberry-Pie-Recipe" {
		t.Errorf("link = %q", link)
	}

	rootLink, err := svc.DeepLinkForStack(ctx, store.RootID())
	if err != nil {
		t.Fatalf("root link: %v", err)
	}
	if rootLink != "notations://" {
		t.Errorf("root link = %q", rootLink)
	}

	if _, err := svc.DeepLinkForSheet(ctx, "missing"); !domain.IsNotFound(err) {
		t.Errorf("expected not-found, got %v", err)
	}
}

func TestParseDeepLink(t *testing.T) {
	path, ok := ParseDeepLink("notations://Food-Notes/Huckleberry-Pie-Recipe")
	if !ok || path != "/Food-Notes/Huckleberry-Pie-Recipe" {
		t.Errorf("path = %q ok=%v", path, ok)
	}

	path, ok = ParseDeepLink("notations://food%20notes/pie")
	if !ok || path != "/food notes/pie" {
		t.Errorf("escaped path = %q ok=%v", path, ok)
	}

	if _, ok := ParseDeepLink("https://example.com/x"); ok {
		t.Error("foreign scheme accepted")
	}
	if _, ok := ParseDeepLink("://"); ok {
		t.Error("malformed url accepted")
	}

	path, ok = ParseDeepLink("notations://")
	if !ok || path != "/" {
		t.Errorf("bare scheme path = %q ok=%v", path, ok)
	}
	if !strings.HasPrefix(path, "/") {
		t.Errorf("path not absolute: %q", path)
	}
}
