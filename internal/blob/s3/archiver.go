package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"polywatch/internal/domain"
)

// Archiver periodically uploads the previous day's alert history to object
// storage as newline-delimited JSON, one file per UTC day.
//
// Deletion of the archived rows from the primary store is intentionally NOT
// performed here. That is a separate, explicit step to be executed after the
// archive has been verified.
type Archiver struct {
	writer domain.BlobWriter
	alerts domain.AlertStore
	logger *slog.Logger

	interval time.Duration
}

// NewArchiver creates an Archiver that checks once per interval whether the
// previous UTC day still needs to be uploaded.
func NewArchiver(writer domain.BlobWriter, alerts domain.AlertStore, interval time.Duration, logger *slog.Logger) *Archiver {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Archiver{
		writer:   writer,
		alerts:   alerts,
		logger:   logger.With("component", "archiver"),
		interval: interval,
	}
}

// Run archives completed days until the context is cancelled. The first pass
// runs immediately so a restart does not delay an overdue upload.
func (a *Archiver) Run(ctx context.Context) error {
	var lastArchived time.Time

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		day := previousDay(time.Now().UTC())
		if !day.Equal(lastArchived) {
			count, err := a.ArchiveDay(ctx, day)
			if err != nil {
				a.logger.Error("alert archive failed",
					"day", day.Format(time.DateOnly),
					"error", err)
			} else {
				if count > 0 {
					a.logger.Info("alert archive uploaded",
						"day", day.Format(time.DateOnly),
						"count", count)
				}
				lastArchived = day
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ArchiveDay uploads all alerts created during the given UTC day. It returns
// the number of archived records; a day with no alerts uploads nothing.
func (a *Archiver) ArchiveDay(ctx context.Context, day time.Time) (int64, error) {
	from := day.Truncate(24 * time.Hour)
	to := from.Add(24 * time.Hour)

	alerts, err := a.alerts.ListBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive alerts query: %w", err)
	}
	if len(alerts) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(alerts)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive alerts marshal: %w", err)
	}

	path := archivePath(from)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive alerts upload: %w", err)
	}

	return int64(len(alerts)), nil
}

// previousDay returns midnight UTC of the day before now.
func previousDay(now time.Time) time.Time {
	return now.Truncate(24 * time.Hour).Add(-24 * time.Hour)
}

// archivePath builds the S3 key for a daily archive file.
//
//	archive/alerts/2026-08-28.jsonl
func archivePath(day time.Time) string {
	return fmt.Sprintf("archive/alerts/%s.jsonl", day.Format(time.DateOnly))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
