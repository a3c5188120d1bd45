package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ThinkChat/internal/session"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(id string, completed time.Time) Record {
	return Record{
		SessionID:    id,
		StartTime:    completed.Add(-time.Minute),
		CompletedAt:  completed,
		Mode:         "Thinking (fixed 2s)",
		ThinkingTime: 2,
		VerifyCode:   "RM2048",
		Messages: []session.Message{
			{Role: session.RoleUser, Content: "question?", Timestamp: completed.Add(-30 * time.Second)},
			{Role: session.RoleAgent, Content: "answer ", Timestamp: completed.Add(-10 * time.Second)},
		},
	}
}

func TestSaveAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := s.Save(ctx, testRecord("b", now.Add(time.Hour))); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, testRecord("a", now)); err != nil {
		t.Fatal(err)
	}

	records, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].SessionID != "a" || records[1].SessionID != "b" {
		t.Errorf("expected completion order a,b got %s,%s", records[0].SessionID, records[1].SessionID)
	}
	msgs := records[0].Messages
	if len(msgs) != 2 || msgs[0].Role != session.RoleUser || msgs[1].Content != "answer " {
		t.Errorf("unexpected messages %+v", msgs)
	}
	if records[0].VerifyCode != "RM2048" || records[0].ThinkingTime != 2 {
		t.Errorf("unexpected record %+v", records[0])
	}
}

func TestSave_ReplacesSameSession(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := s.Save(ctx, testRecord("same", now)); err != nil {
		t.Fatal(err)
	}
	rec := testRecord("same", now.Add(time.Minute))
	rec.Messages = rec.Messages[:1]
	if err := s.Save(ctx, rec); err != nil {
		t.Fatal(err)
	}

	records, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || len(records[0].Messages) != 1 {
		t.Errorf("expected the second save to replace the first, got %+v", records)
	}
}

func TestExport(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.Save(ctx, testRecord("x", time.Now().UTC())); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	n, err := s.Export(ctx, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 record, got %d", n)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one JSON line, got %d", len(lines))
	}
	var rec Record
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.SessionID != "x" || len(rec.Messages) != 2 {
		t.Errorf("unexpected exported record %+v", rec)
	}
}
