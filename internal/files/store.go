package files

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/filedexbot/filedex/internal/db"
)

// Store persists FileRecords in Postgres. The unique constraint on
// file_ref is the source of truth for duplicate suppression; the
// existence pre-check in Ingest is only an optimization.
type Store struct {
	querier db.Querier
	logger  *slog.Logger
}

// NewStore creates a file store backed by the given querier.
func NewStore(log *slog.Logger, querier db.Querier) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		querier: querier,
		logger:  log.With(slog.String("service", "files")),
	}
}

const fileColumns = `id, file_ref, display_name, caption, kind, size_bytes, mime_type,
	source_chat_id, source_message_id, source_title, source_kind, created_at`

// Ingest stores a new record unless one with the same file ref already
// exists. Losing a concurrent insert race is reported as
// OutcomeAlreadyExists, not as an error.
func (s *Store) Ingest(ctx context.Context, candidate FileRecord) (IngestOutcome, error) {
	if !candidate.Kind.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKind, candidate.Kind)
	}
	var exists bool
	err := s.querier.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM files WHERE file_ref = $1)`,
		candidate.FileRef,
	).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("check file existence: %w", err)
	}
	if exists {
		return OutcomeAlreadyExists, nil
	}

	id := candidate.ID
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}
	tag, err := s.querier.Exec(ctx,
		`INSERT INTO files (
			id, file_ref, display_name, caption, kind, size_bytes, mime_type,
			source_chat_id, source_message_id, source_title, source_kind
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (file_ref) DO NOTHING`,
		id,
		candidate.FileRef,
		candidate.DisplayName,
		candidate.Caption,
		string(candidate.Kind),
		candidate.SizeBytes,
		candidate.MimeType,
		candidate.SourceChatID,
		candidate.SourceMessageID,
		candidate.SourceTitle,
		candidate.SourceKind,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// A concurrent writer won the race between the pre-check and
		// the insert. The existing record wins.
		return OutcomeAlreadyExists, nil
	}
	s.logger.Info("file ingested",
		slog.String("id", id),
		slog.String("kind", string(candidate.Kind)),
		slog.String("name", candidate.DisplayName),
		slog.String("source_chat_id", candidate.SourceChatID),
	)
	return OutcomeInserted, nil
}

// Search returns one page of case-insensitive substring matches over
// display name and caption, newest first. The empty query is a caller
// precondition, not handled here.
func (s *Store) Search(ctx context.Context, query string, page int) (SearchResult, error) {
	if page < 1 {
		return SearchResult{}, fmt.Errorf("%w: %d", ErrPageOutOfRange, page)
	}
	pattern := "%" + escapeLike(query) + "%"

	var total int
	err := s.querier.QueryRow(ctx,
		`SELECT count(*) FROM files
		WHERE display_name ILIKE $1 OR caption ILIKE $1`,
		pattern,
	).Scan(&total)
	if err != nil {
		return SearchResult{}, fmt.Errorf("count matches: %w", err)
	}
	if total == 0 {
		if page > 1 {
			return SearchResult{}, fmt.Errorf("%w: %d", ErrPageOutOfRange, page)
		}
		return SearchResult{Page: 1}, nil
	}

	totalPages := (total + PageSize - 1) / PageSize
	if page > totalPages {
		return SearchResult{}, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, totalPages)
	}

	rows, err := s.querier.Query(ctx,
		`SELECT `+fileColumns+` FROM files
		WHERE display_name ILIKE $1 OR caption ILIKE $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2 OFFSET $3`,
		pattern, PageSize, (page-1)*PageSize,
	)
	if err != nil {
		return SearchResult{}, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	items := make([]FileRecord, 0, PageSize)
	for rows.Next() {
		record, err := scanFile(rows)
		if err != nil {
			return SearchResult{}, fmt.Errorf("scan file: %w", err)
		}
		items = append(items, record)
	}
	if err := rows.Err(); err != nil {
		return SearchResult{}, fmt.Errorf("read matches: %w", err)
	}

	return SearchResult{
		TotalCount: total,
		TotalPages: totalPages,
		Page:       page,
		Items:      items,
	}, nil
}

// GetByID resolves a record by its store-assigned id. Records can
// vanish between search and selection; ErrNotFound is a normal outcome.
func (s *Store) GetByID(ctx context.Context, id string) (FileRecord, error) {
	row := s.querier.QueryRow(ctx,
		`SELECT `+fileColumns+` FROM files WHERE id = $1`, id)
	record, err := scanFile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FileRecord{}, ErrNotFound
		}
		return FileRecord{}, fmt.Errorf("get file: %w", err)
	}
	return record, nil
}

// Stats returns corpus totals by kind and the most recent ingestion time.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	var lastAdded *time.Time
	err := s.querier.QueryRow(ctx,
		`SELECT
			count(*),
			count(*) FILTER (WHERE kind = 'document'),
			count(*) FILTER (WHERE kind = 'video'),
			count(*) FILTER (WHERE kind = 'audio'),
			max(created_at)
		FROM files`,
	).Scan(&stats.Total, &stats.Documents, &stats.Videos, &stats.Audios, &lastAdded)
	if err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	if lastAdded != nil {
		stats.LastAddedAt = lastAdded.UTC()
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (FileRecord, error) {
	var record FileRecord
	var kind string
	err := row.Scan(
		&record.ID,
		&record.FileRef,
		&record.DisplayName,
		&record.Caption,
		&kind,
		&record.SizeBytes,
		&record.MimeType,
		&record.SourceChatID,
		&record.SourceMessageID,
		&record.SourceTitle,
		&record.SourceKind,
		&record.CreatedAt,
	)
	if err != nil {
		return FileRecord{}, err
	}
	record.Kind = Kind(kind)
	return record, nil
}

// escapeLike escapes the ILIKE wildcard characters so user input is
// matched literally.
func escapeLike(query string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(query)
}
