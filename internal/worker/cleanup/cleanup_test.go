package cleanup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// mockPurger はPurgerのモック実装。
type mockPurger struct {
	calls         atomic.Int32
	retentionDays int
	deleted       int
	err           error
}

func (m *mockPurger) PurgeBefore(ctx context.Context, retentionDays int) (int, error) {
	m.calls.Add(1)
	m.retentionDays = retentionDays
	return m.deleted, m.err
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// findLogValue はJSONログからキーの値を探す。
func findLogValue(buf *bytes.Buffer, key string) (any, bool) {
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if v, ok := entry[key]; ok {
			return v, true
		}
	}
	return nil, false
}

func TestNewCleanupJob_SetsDefaultRetentionDays(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&mockPurger{}, newTestLogger(&buf))

	if job == nil {
		t.Fatal("NewCleanupJob は nil を返してはならない")
	}
	if job.RetentionDays != 30 {
		t.Errorf("RetentionDays = %d, want 30", job.RetentionDays)
	}
}

func TestCleanupJob_Run_PassesRetentionDays(t *testing.T) {
	var buf bytes.Buffer
	purger := &mockPurger{}
	job := NewCleanupJob(purger, newTestLogger(&buf))
	job.RetentionDays = 7

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	if purger.calls.Load() != 1 {
		t.Errorf("PurgeBefore calls = %d, want 1", purger.calls.Load())
	}
	if purger.retentionDays != 7 {
		t.Errorf("retentionDays = %d, want 7", purger.retentionDays)
	}
}

func TestCleanupJob_Run_LogsDeletedCount(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&mockPurger{deleted: 42}, newTestLogger(&buf))

	_ = job.Run(context.Background())

	if v, ok := findLogValue(&buf, "deleted_count"); !ok || v != float64(42) {
		t.Errorf("ログに deleted_count=42 が記録されていない。ログ出力: %s", buf.String())
	}
	if v, ok := findLogValue(&buf, "retention_days"); !ok || v != float64(30) {
		t.Errorf("ログに retention_days=30 が記録されていない。ログ出力: %s", buf.String())
	}
	if _, ok := findLogValue(&buf, "duration_ms"); !ok {
		t.Errorf("ログに duration_ms が記録されていない。ログ出力: %s", buf.String())
	}
}

func TestCleanupJob_Run_Idempotent_ZeroRows(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&mockPurger{}, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("1回目の Run() がエラーを返した: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("2回目の Run() がエラーを返した: %v", err)
	}
	if v, ok := findLogValue(&buf, "deleted_count"); !ok || v != float64(0) {
		t.Errorf("0件削除時にもログに deleted_count=0 が記録されるべき。ログ出力: %s", buf.String())
	}
}

func TestCleanupJob_Run_ReturnsErrorOnFailure(t *testing.T) {
	var buf bytes.Buffer
	upstream := errors.New("appwrite unavailable")
	job := NewCleanupJob(&mockPurger{deleted: 3, err: upstream}, newTestLogger(&buf))

	err := job.Run(context.Background())
	if !errors.Is(err, upstream) {
		t.Fatalf("Run() error = %v, want wrapping %v", err, upstream)
	}
	if !strings.Contains(buf.String(), "ERROR") {
		t.Errorf("エラー時にERRORレベルのログが記録されていない。ログ出力: %s", buf.String())
	}
	// 途中まで削除できた件数もログに残す
	if v, ok := findLogValue(&buf, "deleted_count"); !ok || v != float64(3) {
		t.Errorf("ログに deleted_count=3 が記録されていない。ログ出力: %s", buf.String())
	}
}

func TestCleanupJob_Start_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	purger := &mockPurger{}
	job := NewCleanupJob(purger, slog.New(slog.NewJSONHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for purger.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("PurgeBefore calls = %d, want >= 2", purger.calls.Load())
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start がキャンセル後に終了しなかった")
	}
}

func TestCleanupJob_Start_ContinuesAfterFailure(t *testing.T) {
	purger := &mockPurger{err: errors.New("boom")}
	job := NewCleanupJob(purger, slog.New(slog.NewJSONHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go job.Start(ctx, 10*time.Millisecond)

	deadline := time.After(2 * time.Second)
	for purger.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("PurgeBefore calls = %d, want >= 3", purger.calls.Load())
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}
