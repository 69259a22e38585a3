package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/rcliao/alphamind/internal/model"
)

// lexicon mirrors the fact log into an in-memory SQLite database so token
// overlap can be answered with an index lookup.
type lexicon struct {
	db *sql.DB
}

func newLexicon(ctx context.Context) (*lexicon, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	l := &lexicon{db: db}
	if err := l.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return l, nil
}

func (l *lexicon) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS facts (
		seq  INTEGER PRIMARY KEY,
		text TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS fact_tokens (
		seq   INTEGER NOT NULL REFERENCES facts(seq),
		token TEXT NOT NULL,
		PRIMARY KEY (token, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_fact_tokens_seq ON fact_tokens(seq);
	`
	_, err := l.db.ExecContext(ctx, schema)
	return err
}

func (l *lexicon) insert(ctx context.Context, f model.Fact) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO facts (seq, text) VALUES (?, ?)`, f.Seq, f.Text); err != nil {
		return fmt.Errorf("insert fact: %w", err)
	}
	for _, tok := range Tokens(f.Text) {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO fact_tokens (seq, token) VALUES (?, ?)`, f.Seq, tok); err != nil {
			return fmt.Errorf("insert token: %w", err)
		}
	}
	return tx.Commit()
}

// matching returns facts holding any of tokens, ordered by seq.
func (l *lexicon) matching(ctx context.Context, tokens []string) ([]model.Fact, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tokens)), ",")
	args := make([]any, len(tokens))
	for i, t := range tokens {
		args[i] = t
	}

	query := fmt.Sprintf(`
		SELECT f.seq, f.text
		FROM facts f
		WHERE EXISTS (
			SELECT 1 FROM fact_tokens t
			WHERE t.seq = f.seq AND t.token IN (%s)
		)
		ORDER BY f.seq`, placeholders)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var facts []model.Fact
	for rows.Next() {
		var f model.Fact
		if err := rows.Scan(&f.Seq, &f.Text); err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

func (l *lexicon) counts(ctx context.Context) (facts, tokens int, err error) {
	if err = l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM facts`).Scan(&facts); err != nil {
		return 0, 0, err
	}
	if err = l.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT token) FROM fact_tokens`).Scan(&tokens); err != nil {
		return 0, 0, err
	}
	return facts, tokens, nil
}

func (l *lexicon) close() error {
	return l.db.Close()
}
