package loader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/simtriage/internal/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS submissions (
    position INTEGER PRIMARY KEY,
    id TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL DEFAULT '',
    author TEXT NOT NULL DEFAULT '',
    similarity_percent REAL NOT NULL,
    date_added TEXT NOT NULL DEFAULT '',
    ai_writing_percent REAL,
    flag_count INTEGER NOT NULL DEFAULT 0,
    grade TEXT
);

CREATE TABLE IF NOT EXISTS match_cards (
    id INTEGER PRIMARY KEY,
    submission_id TEXT NOT NULL REFERENCES submissions(id),
    ordinal INTEGER NOT NULL,
    source_name TEXT NOT NULL,
    source_type TEXT NOT NULL,
    similarity_percent REAL NOT NULL,
    is_cited INTEGER NOT NULL DEFAULT 0,
    citation_status TEXT NOT NULL,
    academic_integrity_issue INTEGER NOT NULL DEFAULT 0,
    issue_description TEXT
);

CREATE INDEX IF NOT EXISTS idx_match_cards_submission ON match_cards(submission_id, ordinal);
`

// SQLiteSource reads a snapshot stored in a SQLite database
type SQLiteSource struct {
	path string
}

// NewSQLiteSource creates a source over the database at path
func NewSQLiteSource(path string) *SQLiteSource {
	return &SQLiteSource{path: path}
}

func (s *SQLiteSource) Name() string {
	return "sqlite:" + s.path
}

// openDB opens the database and applies the schema
func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

// Load reads submissions in insertion order with their match cards
func (s *SQLiteSource) Load(ctx context.Context) ([]model.Submission, error) {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", s.Name(), ErrNotFound)
	}

	db, err := openDB(s.path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	subs, err := querySubmissions(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}
	cards, err := queryMatchCards(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}
	for i := range subs {
		subs[i].MatchCards = cards[subs[i].ID]
		if subs[i].MatchCards == nil {
			subs[i].MatchCards = []model.MatchCard{}
		}
	}
	return finish(s.Name(), subs)
}

func querySubmissions(ctx context.Context, db *sql.DB) ([]model.Submission, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, title, author, similarity_percent, date_added, ai_writing_percent, flag_count, grade
		FROM submissions ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var subs []model.Submission
	for rows.Next() {
		var (
			sub   model.Submission
			ai    sql.NullFloat64
			grade sql.NullString
		)
		if err := rows.Scan(&sub.ID, &sub.Title, &sub.Author, &sub.SimilarityPercent,
			&sub.DateAdded, &ai, &sub.FlagCount, &grade); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		if ai.Valid {
			sub.AIWritingPercent = &ai.Float64
		}
		if grade.Valid {
			sub.Grade = &grade.String
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func queryMatchCards(ctx context.Context, db *sql.DB) (map[string][]model.MatchCard, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT submission_id, source_name, source_type, similarity_percent, is_cited,
		       citation_status, academic_integrity_issue, issue_description
		FROM match_cards ORDER BY submission_id, ordinal`)
	if err != nil {
		return nil, fmt.Errorf("query match cards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cards := make(map[string][]model.MatchCard)
	for rows.Next() {
		var (
			subID, sourceType, status string
			card                      model.MatchCard
			desc                      sql.NullString
		)
		if err := rows.Scan(&subID, &card.SourceName, &sourceType, &card.SimilarityPercent,
			&card.IsCited, &status, &card.AcademicIntegrityIssue, &desc); err != nil {
			return nil, fmt.Errorf("scan match card: %w", err)
		}
		// Unknown spellings are kept verbatim so validation reports them
		card.SourceType = model.SourceType(sourceType)
		if parsed, err := model.ParseSourceType(sourceType); err == nil {
			card.SourceType = parsed
		}
		card.CitationStatus = model.CitationStatus(status)
		if parsed, err := model.ParseCitationStatus(status); err == nil {
			card.CitationStatus = parsed
		}
		if desc.Valid {
			card.IssueDescription = &desc.String
		}
		cards[subID] = append(cards[subID], card)
	}
	return cards, rows.Err()
}

// Import replaces the database contents with subs, keeping their order
func (s *SQLiteSource) Import(ctx context.Context, subs []model.Submission) error {
	if err := model.ValidateAll(subs); err != nil {
		return fmt.Errorf("import: %w", err)
	}

	db, err := openDB(s.path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM match_cards`); err != nil {
		return fmt.Errorf("clear match cards: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM submissions`); err != nil {
		return fmt.Errorf("clear submissions: %w", err)
	}

	for pos, sub := range subs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO submissions(position, id, title, author, similarity_percent, date_added, ai_writing_percent, flag_count, grade)
			VALUES(?,?,?,?,?,?,?,?,?)`,
			pos, sub.ID, sub.Title, sub.Author, sub.SimilarityPercent, sub.DateAdded,
			nullFloat(sub.AIWritingPercent), sub.FlagCount, nullString(sub.Grade),
		); err != nil {
			return fmt.Errorf("insert submission %s: %w", sub.ID, err)
		}
		for ord, card := range sub.MatchCards {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO match_cards(submission_id, ordinal, source_name, source_type, similarity_percent,
				                        is_cited, citation_status, academic_integrity_issue, issue_description)
				VALUES(?,?,?,?,?,?,?,?,?)`,
				sub.ID, ord, card.SourceName, string(card.SourceType), card.SimilarityPercent,
				card.IsCited, string(card.CitationStatus), card.AcademicIntegrityIssue, nullString(card.IssueDescription),
			); err != nil {
				return fmt.Errorf("insert match card %s/%d: %w", sub.ID, ord, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
