package memory

import (
	"context"
	"io"
	"strings"
	"testing"

	"notations/internal/blob/core"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, err := s.Put(ctx, "k1", strings.NewReader("v1"), core.PutOptions{ContentType: "text/plain"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := s.Put(ctx, "k1", strings.NewReader("v2"), core.PutOptions{}); err == nil {
		t.Fatal("expected create-only failure")
	}

	info, rc, err := s.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "v1" || info.ContentType != "text/plain" {
		t.Errorf("got %q %+v", body, info)
	}

	if _, err := s.Head(ctx, "missing"); err == nil {
		t.Error("Head of missing key must fail")
	}

	ok, err := s.Delete(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("Delete: ok=%v err=%v", ok, err)
	}
	if ok, _ := s.Delete(ctx, "k1"); ok {
		t.Error("second delete must report false")
	}
}

func TestMemoryStoreListOrdered(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, k := range []string{"b/2", "a/1", "b/1"} {
		if _, err := s.Put(ctx, k, strings.NewReader(k), core.PutOptions{}); err != nil {
			t.Fatalf("Put %s: %v", k, err)
		}
	}
	infos, err := s.List(ctx, "b/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "b/1" || infos[1].Key != "b/2" {
		t.Errorf("unexpected listing: %+v", infos)
	}
}

func TestMemoryStorePresignUnsupported(t *testing.T) {
	if _, err := New().PresignURL(context.Background(), "k", core.SignedURLOptions{}); err != core.ErrUnsupported {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}
