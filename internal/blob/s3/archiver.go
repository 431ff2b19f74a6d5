package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/alanyoungcy/positionbook/internal/domain"
	"github.com/alanyoungcy/positionbook/internal/position"
)

const archiveContentType = "application/x-ndjson"

// ArchivedPosition is one JSONL line of a position archive file.
type ArchivedPosition struct {
	Position   domain.Position       `json:"position"`
	Metrics    position.Metrics      `json:"metrics"`
	Journal    []domain.JournalEntry `json:"journal"`
	ArchivedAt time.Time             `json:"archived_at"`
}

// PositionArchiver implements domain.Archiver. Each closed position created
// before the cutoff is merged into archive/positions/YYYY-MM.jsonl for the
// month it was created, keyed by position ID, so repeated runs never copy a
// position into a second file.
//
// Archived positions stay in the primary store. Purging them is a separate,
// explicit step once the archive has been verified.
type PositionArchiver struct {
	writer    domain.BlobWriter
	reader    domain.BlobReader
	positions domain.PositionStore
	journals  domain.JournalStore
	audit     domain.AuditStore
	logger    *slog.Logger
	now       func() time.Time
}

// NewArchiver creates a PositionArchiver.
func NewArchiver(
	writer domain.BlobWriter,
	reader domain.BlobReader,
	positions domain.PositionStore,
	journals domain.JournalStore,
	audit domain.AuditStore,
	logger *slog.Logger,
) *PositionArchiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &PositionArchiver{
		writer:    writer,
		reader:    reader,
		positions: positions,
		journals:  journals,
		audit:     audit,
		logger:    logger,
		now:       time.Now,
	}
}

// ArchiveClosedPositions writes every closed position created before the
// cutoff and returns how many were written.
func (a *PositionArchiver) ArchiveClosedPositions(ctx context.Context, before time.Time) (int64, error) {
	candidates, err := a.positions.ListCreatedBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive positions query: %w", err)
	}

	archivedAt := a.now().UTC()
	byPath := make(map[string][]ArchivedPosition)
	var count int64
	for _, p := range candidates {
		p = position.Project(p)
		if p.Status != domain.PositionStatusClosed {
			continue
		}
		journal, err := a.journals.ListByPosition(ctx, p.ID)
		if err != nil {
			return 0, fmt.Errorf("s3blob: archive journal for %s: %w", p.ID, err)
		}
		path := archivePath("positions", p.CreatedAt)
		byPath[path] = append(byPath[path], ArchivedPosition{
			Position:   p,
			Metrics:    position.CalculateMetrics(p, domain.PriceSnapshot{}),
			Journal:    journal,
			ArchivedAt: archivedAt,
		})
		count++
	}
	if count == 0 {
		return 0, nil
	}

	paths := make([]string, 0, len(byPath))
	for path := range byPath {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := a.writeMonth(ctx, path, byPath[path]); err != nil {
			return 0, err
		}
	}
	a.logger.InfoContext(ctx, "s3blob: archived positions",
		slog.Any("paths", paths),
		slog.Int64("count", count),
	)

	if a.audit != nil {
		if err := a.audit.Log(ctx, "archive.positions", map[string]any{
			"paths":  paths,
			"count":  count,
			"before": before.Format(time.RFC3339),
		}); err != nil {
			return count, fmt.Errorf("s3blob: archive positions audit log: %w", err)
		}
	}
	return count, nil
}

// writeMonth merges fresh records into the archive file at path.
func (a *PositionArchiver) writeMonth(ctx context.Context, path string, fresh []ArchivedPosition) error {
	existing, err := a.load(ctx, path)
	if err != nil {
		return err
	}
	buf, err := marshalJSONL(mergeArchived(existing, fresh))
	if err != nil {
		return fmt.Errorf("s3blob: archive positions marshal: %w", err)
	}
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), archiveContentType); err != nil {
		return fmt.Errorf("s3blob: archive positions upload %s: %w", path, err)
	}
	return nil
}

// Load returns the records stored in an archive file.
func (a *PositionArchiver) Load(ctx context.Context, path string) ([]ArchivedPosition, error) {
	return a.load(ctx, path)
}

func (a *PositionArchiver) load(ctx context.Context, path string) ([]ArchivedPosition, error) {
	if a.reader == nil {
		return nil, nil
	}
	body, err := a.reader.Get(ctx, path)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("s3blob: archive read %s: %w", path, err)
	}
	defer body.Close()

	records, err := unmarshalJSONL[ArchivedPosition](body)
	if err != nil {
		return nil, fmt.Errorf("s3blob: archive decode %s: %w", path, err)
	}
	return records, nil
}

// mergeArchived replaces existing records with fresh ones of the same
// position ID and orders the result by position creation time.
func mergeArchived(existing, fresh []ArchivedPosition) []ArchivedPosition {
	byID := make(map[string]ArchivedPosition, len(existing)+len(fresh))
	for _, r := range existing {
		byID[r.Position.ID] = r
	}
	for _, r := range fresh {
		byID[r.Position.ID] = r
	}

	out := make([]ArchivedPosition, 0, len(byID))
	for _, r := range byID {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Position.CreatedAt.Equal(out[j].Position.CreatedAt) {
			return out[i].Position.CreatedAt.Before(out[j].Position.CreatedAt)
		}
		return out[i].Position.ID < out[j].Position.ID
	})
	return out
}

// archivePath builds the object key for the archive file covering the UTC
// year-month of created.
//
//	archive/positions/2025-01.jsonl
func archivePath(kind string, created time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, created.UTC().Format("2006-01"))
}

// marshalJSONL serialises records as newline-delimited JSON.
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

// unmarshalJSONL decodes newline-delimited JSON, skipping blank lines.
func unmarshalJSONL[T any](r io.Reader) ([]T, error) {
	var out []T
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("jsonl line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
