package core

import (
	"context"
	"testing"
	"time"

	"notations/pkg/domain"
)

type auditRecorderStub struct {
	entries []AuditEntry
}

func (r *auditRecorderStub) Record(_ context.Context, entry AuditEntry) {
	r.entries = append(r.entries, entry)
}

func (r *auditRecorderStub) has(op string, status AuditStatus) bool {
	for _, entry := range r.entries {
		if entry.Operation == op && entry.Status == status {
			return true
		}
	}
	return false
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op  string
	err error
}

type captureTracer struct {
	ended []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	for _, record := range c.ended {
		if record.op == op && (record.err == nil) == success {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

type logLine struct {
	level string
	msg   string
}

type captureLogger struct {
	lines []logLine
}

func (l *captureLogger) Debug(msg string, _ ...any) { l.lines = append(l.lines, logLine{"debug", msg}) }
func (l *captureLogger) Info(msg string, _ ...any)  { l.lines = append(l.lines, logLine{"info", msg}) }
func (l *captureLogger) Warn(msg string, _ ...any)  { l.lines = append(l.lines, logLine{"warn", msg}) }
func (l *captureLogger) Error(msg string, _ ...any) { l.lines = append(l.lines, logLine{"error", msg}) }

func TestServiceTreeOperationsEmitObservability(t *testing.T) {
	ctx := context.Background()
	audit := &auditRecorderStub{}
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	logger := &captureLogger{}

	svc := NewInMemoryService(NewDefaultRulesEngine(),
		WithAuditRecorder(audit),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
		WithLogger(logger),
	)

	stack, _, err := svc.CreateStack(ctx, "Projects", svc.RootID())
	if err != nil {
		t.Fatalf("create stack: %v", err)
	}
	if !audit.has("create_stack", AuditStatusSuccess) {
		t.Error("expected audit entry for create_stack success")
	}

	sheet, _, err := svc.CreateSheet(ctx, "Kickoff", "agenda", stack.ID, "")
	if err != nil {
		t.Fatalf("create sheet: %v", err)
	}
	if got, _ := svc.GetSheet(sheet.ID); got.ParentID != stack.ID {
		t.Errorf("sheet parent = %q", got.ParentID)
	}

	if _, _, _, err := svc.Rename(ctx, sheet.ID, "Kickoff Notes"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, _, err := svc.MoveSheet(ctx, sheet.ID, svc.RootID()); err != nil {
		t.Fatalf("move: %v", err)
	}
	if changed, _, err := svc.AddSheetTag(ctx, sheet.ID, "Planning"); err != nil || !changed {
		t.Fatalf("add tag: changed=%v err=%v", changed, err)
	}
	if _, err := svc.SetSheetBody(ctx, sheet.ID, "updated agenda"); err != nil {
		t.Fatalf("set body: %v", err)
	}
	if _, err := svc.DeleteCascade(ctx, sheet.ID); err != nil {
		t.Fatalf("delete sheet: %v", err)
	}
	if _, err := svc.UnstackAndDelete(ctx, stack.ID); err != nil {
		t.Fatalf("unstack: %v", err)
	}

	for _, op := range []string{
		"create_stack",
		"create_sheet",
		"rename_node",
		"move_sheet",
		"add_sheet_tag",
		"set_sheet_body",
		"delete_node",
		"unstack_stack",
	} {
		if !metrics.has(op, true) {
			t.Errorf("expected metrics success entry for %s", op)
		}
		if !tracer.has(op, true) {
			t.Errorf("expected finished span for %s", op)
		}
		if !audit.has(op, AuditStatusSuccess) {
			t.Errorf("expected audit success entry for %s", op)
		}
	}
}

func TestServiceFailureRecordsErrorEntries(t *testing.T) {
	ctx := context.Background()
	audit := &auditRecorderStub{}
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	logger := &captureLogger{}

	svc := NewInMemoryService(NewDefaultRulesEngine(),
		WithAuditRecorder(audit),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
		WithLogger(logger),
	)

	_, err := svc.DeleteCascade(ctx, "missing-node")
	if err == nil {
		t.Fatal("expected delete of missing node to fail")
	}
	if !domain.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
	if !audit.has("delete_node", AuditStatusError) {
		t.Error("expected audit error entry for delete_node")
	}
	if !metrics.has("delete_node", false) {
		t.Error("expected metrics error entry for delete_node")
	}
	if !tracer.has("delete_node", false) {
		t.Error("expected failed span for delete_node")
	}

	found := false
	for _, line := range logger.lines {
		if line.level == "error" && line.msg == "operation failed" {
			found = true
		}
	}
	if !found {
		t.Error("expected error log line for failed operation")
	}
}

func TestAuditMetadataUsesClock(t *testing.T) {
	fixed := time.Date(2024, 10, 1, 8, 30, 0, 0, time.UTC)
	audit := &auditRecorderStub{}
	svc := NewInMemoryService(NewDefaultRulesEngine(),
		WithAuditRecorder(audit),
		WithClock(ClockFunc(func() time.Time { return fixed })),
	)

	stack, _, err := svc.CreateStack(context.Background(), "Audited", svc.RootID())
	if err != nil {
		t.Fatalf("create stack: %v", err)
	}
	if len(audit.entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(audit.entries))
	}
	entry := audit.entries[0]
	if entry.Kind != domain.KindStack || entry.Action != domain.ActionCreate {
		t.Errorf("entry target = %s/%s", entry.Kind, entry.Action)
	}
	if entry.EntityID != stack.ID {
		t.Errorf("entry entity = %q, want %q", entry.EntityID, stack.ID)
	}
	if !entry.Timestamp.Equal(fixed) {
		t.Errorf("entry timestamp = %v", entry.Timestamp)
	}
	if entry.Duration != 0 {
		t.Errorf("frozen clock duration = %v", entry.Duration)
	}
}

func TestRecordAuditIgnoresUnknownOperation(t *testing.T) {
	audit := &auditRecorderStub{}
	svc := NewInMemoryService(NewDefaultRulesEngine(), WithAuditRecorder(audit))

	svc.recordAuditSuccess(context.Background(), "unknown_operation", "entity", time.Second)
	if len(audit.entries) != 0 {
		t.Fatalf("expected no audit entries for unknown operation, got %d", len(audit.entries))
	}
}

func TestServiceStateOperations(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService(NewDefaultRulesEngine())

	settings, _, err := svc.UpdateSettings(ctx, func(s *domain.Settings) error {
		s.FontSize = 25
		return nil
	})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if settings.FontSize != 26 {
		t.Errorf("font size = %v, want snapped 26", settings.FontSize)
	}

	if _, err := svc.Login(ctx, "margaux"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.View(ctx, func(view domain.TransactionView) error {
		if auth := view.Auth(); !auth.LoggedIn || auth.Username != "margaux" {
			t.Errorf("auth = %+v", auth)
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
	if _, err := svc.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := svc.SetFocus(ctx, svc.RootID(), ""); err != nil {
		t.Fatalf("set focus: %v", err)
	}

	ui, _, err := svc.UpdateUI(ctx, func(u *domain.UIState) error {
		u.ZenMode = true
		return nil
	})
	if err != nil {
		t.Fatalf("update ui: %v", err)
	}
	if !ui.ZenMode {
		t.Error("zen mode not applied")
	}
}
