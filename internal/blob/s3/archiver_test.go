package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"polywatch/internal/domain"
)

type fakeWriter struct {
	puts map[string][]byte
	err  error
}

func (f *fakeWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	if f.err != nil {
		return f.err
	}
	if contentType != "application/x-ndjson" {
		return errors.New("unexpected content type " + contentType)
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.puts == nil {
		f.puts = make(map[string][]byte)
	}
	f.puts[path] = buf
	return nil
}

type fakeAlerts struct {
	alerts []domain.Alert
	err    error

	gotFrom, gotTo time.Time
}

func (f *fakeAlerts) Insert(context.Context, domain.Alert) error { return nil }

func (f *fakeAlerts) ListBetween(_ context.Context, from, to time.Time) ([]domain.Alert, error) {
	f.gotFrom, f.gotTo = from, to
	return f.alerts, f.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestArchiveDayUploadsJSONL(t *testing.T) {
	change := decimal.RequireFromString("16.5")
	alerts := &fakeAlerts{alerts: []domain.Alert{
		{ID: "a1", ConditionID: "c1", TokenID: "t1", BidChange: &change, Message: "m1"},
		{ID: "a2", ConditionID: "c2", TokenID: "t2", Message: "m2"},
	}}
	writer := &fakeWriter{}
	a := NewArchiver(writer, alerts, time.Hour, discard())

	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	count, err := a.ArchiveDay(context.Background(), day)
	if err != nil {
		t.Fatalf("ArchiveDay: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	if !alerts.gotFrom.Equal(day) || !alerts.gotTo.Equal(day.Add(24*time.Hour)) {
		t.Errorf("query window = [%v, %v)", alerts.gotFrom, alerts.gotTo)
	}

	data, ok := writer.puts["archive/alerts/2026-08-28.jsonl"]
	if !ok {
		t.Fatalf("uploaded paths = %v", writer.puts)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	var lines int
	for scanner.Scan() {
		lines++
		var a domain.Alert
		if err := json.Unmarshal(scanner.Bytes(), &a); err != nil {
			t.Errorf("line %d not valid JSON: %v", lines, err)
		}
	}
	if lines != 2 {
		t.Errorf("jsonl lines = %d, want 2", lines)
	}
}

func TestArchiveDayEmptyUploadsNothing(t *testing.T) {
	writer := &fakeWriter{}
	a := NewArchiver(writer, &fakeAlerts{}, time.Hour, discard())

	count, err := a.ArchiveDay(context.Background(), time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ArchiveDay: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
	if len(writer.puts) != 0 {
		t.Errorf("unexpected uploads: %v", writer.puts)
	}
}

func TestArchiveDayPropagatesErrors(t *testing.T) {
	queryErr := errors.New("db down")
	a := NewArchiver(&fakeWriter{}, &fakeAlerts{err: queryErr}, time.Hour, discard())
	if _, err := a.ArchiveDay(context.Background(), time.Now().UTC()); !errors.Is(err, queryErr) {
		t.Errorf("error = %v, want %v", err, queryErr)
	}

	putErr := errors.New("bucket gone")
	alerts := &fakeAlerts{alerts: []domain.Alert{{ID: "a1"}}}
	a = NewArchiver(&fakeWriter{err: putErr}, alerts, time.Hour, discard())
	if _, err := a.ArchiveDay(context.Background(), time.Now().UTC()); !errors.Is(err, putErr) {
		t.Errorf("error = %v, want %v", err, putErr)
	}
}
