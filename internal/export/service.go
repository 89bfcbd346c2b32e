// Package export writes sheet bodies and full state archives to blob
// storage and builds shareable deep-link URLs.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"notations/internal/blob"
	"notations/internal/route"
	"notations/pkg/domain"
)

// DeepLinkScheme is the registered URL scheme for external navigation.
const DeepLinkScheme = "notations"

var unsafeFilenameRuns = regexp.MustCompile(`[^\w.-]+`)

// SafeFilename derives a filesystem-safe, lowercase name from a title. Runs
// of anything outside word characters, dots, and hyphens collapse to a
// single underscore; empty titles fall back to "untitled".
func SafeFilename(name string) string {
	return strings.ToLower(unsafeFilenameRuns.ReplaceAllString(domain.SafeTitle(name, domain.DefaultSheetTitle), "_"))
}

// Service exports document content through a blob store.
type Service struct {
	store domain.PersistentStore
	blobs blob.Store
	nowFn func() time.Time
}

// Option customizes an export service.
type Option func(*Service)

// WithNowFunc overrides the timestamp source used for archive names.
func WithNowFunc(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.nowFn = fn
		}
	}
}

// NewService builds an export service over the given store and blob backend.
func NewService(store domain.PersistentStore, blobs blob.Store, options ...Option) *Service {
	s := &Service{
		store: store,
		blobs: blobs,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
	for _, apply := range options {
		apply(s)
	}
	return s
}

// put overwrites any existing blob under key.
func (s *Service) put(ctx context.Context, key, contentType, body string) (blob.Info, error) {
	if _, err := s.blobs.Delete(ctx, key); err != nil {
		return blob.Info{}, fmt.Errorf("replace %s: %w", key, err)
	}
	info, err := s.blobs.Put(ctx, key, strings.NewReader(body), blob.PutOptions{ContentType: contentType})
	if err != nil {
		return blob.Info{}, fmt.Errorf("put %s: %w", key, err)
	}
	return info, nil
}

// ExportSheetText writes a sheet's body to exports/<safe-filename>.txt and
// returns the stored blob info.
func (s *Service) ExportSheetText(ctx context.Context, sheetID string) (blob.Info, error) {
	sheet, ok := s.store.GetSheet(sheetID)
	if !ok {
		return blob.Info{}, domain.ErrNotFound{Kind: domain.KindSheet, ID: sheetID}
	}
	key := "exports/" + SafeFilename(sheet.Title) + ".txt"
	return s.put(ctx, key, "text/plain; charset=utf-8", sheet.Body)
}

// ExportSnapshot archives the full state as indented JSON under
// snapshots/<timestamp>.json.
func (s *Service) ExportSnapshot(ctx context.Context) (blob.Info, error) {
	snapshot := s.store.ExportState()
	payload, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return blob.Info{}, fmt.Errorf("encode snapshot: %w", err)
	}
	key := "snapshots/" + s.nowFn().Format("20060102T150405Z") + ".json"
	return s.put(ctx, key, "application/json", string(payload))
}

// buildDeepLink renders segments as a scheme URL. No segments yields the
// bare scheme root.
func buildDeepLink(segments []string) string {
	if len(segments) == 0 {
		return DeepLinkScheme + "://"
	}
	escaped := make([]string, len(segments))
	for i, segment := range segments {
		escaped[i] = url.PathEscape(segment)
	}
	return DeepLinkScheme + "://" + strings.Join(escaped, "/")
}

// DeepLinkForSheet returns the shareable URL addressing a sheet.
func (s *Service) DeepLinkForSheet(ctx context.Context, sheetID string) (string, error) {
	if _, ok := s.store.GetSheet(sheetID); !ok {
		return "", domain.ErrNotFound{Kind: domain.KindSheet, ID: sheetID}
	}
	var link string
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		link = buildDeepLink(route.RouteForSheet(view, sheetID))
		return nil
	})
	return link, err
}

// DeepLinkForStack returns the shareable URL addressing a stack. The root
// stack yields the bare scheme root.
func (s *Service) DeepLinkForStack(ctx context.Context, stackID string) (string, error) {
	if _, ok := s.store.GetStack(stackID); !ok {
		return "", domain.ErrNotFound{Kind: domain.KindStack, ID: stackID}
	}
	var link string
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		link = buildDeepLink(route.RouteForStack(view, stackID))
		return nil
	})
	return link, err
}

// ParseDeepLink converts a scheme URL into the normalized absolute route
// path consumed by the navigation controller. Non-matching URLs return
// ok=false.
func ParseDeepLink(raw string) (string, bool) {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme != DeepLinkScheme {
		return "", false
	}
	var segments []string
	if parsed.Host != "" {
		segments = append(segments, parsed.Host)
	}
	for _, part := range strings.Split(parsed.Path, "/") {
		if part == "" {
			continue
		}
		segments = append(segments, part)
	}
	decoded := make([]string, len(segments))
	for i, segment := range segments {
		value, err := url.PathUnescape(segment)
		if err != nil {
			value = segment
		}
		decoded[i] = value
	}
	return "/" + strings.Join(decoded, "/"), true
}
