// Package store loads parsed books into SQLite so individual passages can be
// queried and tracked once they have been posted.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mikequentel/sutraparser/internal/model"
)

var ErrNoPassages = errors.New("no unposted passages remain")

// Passage is one paragraph together with the position it came from.
type Passage struct {
	ID          int64
	BookID      string
	BookTitle   string
	JuanName    string
	ChapterName string
	Text        string
}

const schema = `
CREATE TABLE IF NOT EXISTS import_runs (
	id          TEXT PRIMARY KEY,
	imported_at TEXT NOT NULL,
	books       INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS books (
	id         TEXT PRIMARY KEY,
	bu         TEXT NOT NULL,
	title      TEXT NOT NULL,
	author     TEXT NOT NULL,
	last_bu_id TEXT NULL,
	next_bu_id TEXT NULL,
	doc_json   TEXT NOT NULL,
	run_id     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS passages (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	book_id      TEXT NOT NULL REFERENCES books(id),
	juan_idx     INTEGER NOT NULL,
	chapter_idx  INTEGER NOT NULL,
	seq          INTEGER NOT NULL,
	juan_id      TEXT NOT NULL,
	juan_name    TEXT NOT NULL,
	chapter_id   TEXT NOT NULL,
	chapter_name TEXT NOT NULL,
	text         TEXT NOT NULL,
	run_id       TEXT NOT NULL,
	posted_at    TEXT NULL,
	x_post_id    TEXT NULL,
	UNIQUE (book_id, juan_idx, chapter_idx, seq)
);
`

// Open opens (creating if needed) the database at path and applies the schema.
// ":memory:" is accepted for tests.
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Import upserts every book and its passages in one transaction and returns
// the id of the import run. Passages that disappeared from a re-imported book
// are removed; posted_at survives for the ones that remain.
func Import(ctx context.Context, db *sql.DB, books map[string]*model.ParsedDocument) (string, error) {
	runID := uuid.NewString()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	bookStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO books (id, bu, title, author, last_bu_id, next_bu_id, doc_json, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  bu = excluded.bu,
		  title = excluded.title,
		  author = excluded.author,
		  last_bu_id = excluded.last_bu_id,
		  next_bu_id = excluded.next_bu_id,
		  doc_json = excluded.doc_json,
		  run_id = excluded.run_id
	`)
	if err != nil {
		return "", fmt.Errorf("prepare book stmt: %w", err)
	}
	defer bookStmt.Close()

	passageStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO passages (book_id, juan_idx, chapter_idx, seq, juan_id, juan_name, chapter_id, chapter_name, text, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(book_id, juan_idx, chapter_idx, seq) DO UPDATE SET
		  juan_id = excluded.juan_id,
		  juan_name = excluded.juan_name,
		  chapter_id = excluded.chapter_id,
		  chapter_name = excluded.chapter_name,
		  text = excluded.text,
		  run_id = excluded.run_id
	`)
	if err != nil {
		return "", fmt.Errorf("prepare passage stmt: %w", err)
	}
	defer passageStmt.Close()

	ids := make([]string, 0, len(books))
	for id := range books {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		pd := books[id]
		docJSON, err := json.Marshal(pd)
		if err != nil {
			return "", fmt.Errorf("marshal book %s: %w", id, err)
		}
		if _, err := bookStmt.ExecContext(ctx,
			id,
			pd.Meta.Bu,
			pd.Meta.Title,
			pd.Meta.Author,
			nullIfEmpty(pd.Meta.LastBu.ID),
			nullIfEmpty(pd.Meta.NextBu.ID),
			string(docJSON),
			runID,
		); err != nil {
			return "", fmt.Errorf("upsert book %s: %w", id, err)
		}

		for ji, juan := range pd.Juans {
			for ci, ch := range juan.Chapters {
				// chapters of one juan can carry the same paragraph list; keep the first
				if ci > 0 && slices.Equal(ch.Paragraphs, juan.Chapters[ci-1].Paragraphs) {
					continue
				}
				for seq, text := range ch.Paragraphs {
					if _, err := passageStmt.ExecContext(ctx,
						id, ji, ci, seq,
						juan.ID, juan.Name, ch.ID, ch.Name,
						text, runID,
					); err != nil {
						return "", fmt.Errorf("upsert passage %s/%d/%d/%d: %w", id, ji, ci, seq, err)
					}
				}
			}
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM passages WHERE book_id = ? AND run_id <> ?`, id, runID); err != nil {
			return "", fmt.Errorf("prune passages of %s: %w", id, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO import_runs (id, imported_at, books) VALUES (?, ?, ?)`,
		runID, time.Now().UTC().Format(time.RFC3339), len(ids)); err != nil {
		return "", fmt.Errorf("record import run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit tx: %w", err)
	}
	return runID, nil
}

// RandomUnposted picks one passage that has not been posted yet.
func RandomUnposted(ctx context.Context, db *sql.DB) (*Passage, error) {
	const q = `
SELECT p.id, p.book_id, b.title, p.juan_name, p.chapter_name, p.text
FROM passages p
JOIN books b ON b.id = p.book_id
WHERE p.posted_at IS NULL AND p.text <> ''
ORDER BY RANDOM()
LIMIT 1;
`
	p := &Passage{}
	err := db.QueryRowContext(ctx, q).Scan(&p.ID, &p.BookID, &p.BookTitle, &p.JuanName, &p.ChapterName, &p.Text)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoPassages
		}
		return nil, err
	}
	return p, nil
}

func MarkPosted(ctx context.Context, db *sql.DB, id int64, postID string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE passages SET posted_at = CURRENT_TIMESTAMP, x_post_id = ? WHERE id = ?`, postID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("passage %d not found", id)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
