package cardsource

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Carmen-Shannon/oxy-tiles/common"
	_ "modernc.org/sqlite"
)

// Tags live in their own table so any text, commas included, survives a round trip.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS cards (
	id          INTEGER PRIMARY KEY,
	position    INTEGER NOT NULL,
	title       TEXT NOT NULL,
	image       TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	client      TEXT NOT NULL DEFAULT '',
	date        TEXT NOT NULL DEFAULT '',
	badge       TEXT NOT NULL DEFAULT ''
)`,
	`CREATE TABLE IF NOT EXISTS card_tags (
	card_id  INTEGER NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	tag      TEXT NOT NULL
)`,
}

// SQLiteSource reads cards from the cards table of a SQLite database, ordered by position,
// with their tags from card_tags.
type SQLiteSource struct {
	Path string
}

var _ Source = SQLiteSource{}

func (s SQLiteSource) Cards(ctx context.Context) ([]common.CardRecord, error) {
	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return nil, fmt.Errorf("cardsource: open %s: %w", s.Path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx,
		`SELECT id, title, image, description, client, date, badge FROM cards ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("cardsource: query cards: %w", err)
	}
	defer rows.Close()

	var cards []common.CardRecord
	index := make(map[int64]int)
	for rows.Next() {
		var id int64
		c := common.CardRecord{Tags: []string{}}
		if err := rows.Scan(&id, &c.Title, &c.Image, &c.Description, &c.Client, &c.Date, &c.Badge); err != nil {
			return nil, fmt.Errorf("cardsource: scan card: %w", err)
		}
		index[id] = len(cards)
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cardsource: read cards: %w", err)
	}
	if len(cards) == 0 {
		return nil, ErrEmpty
	}

	tags, err := db.QueryContext(ctx, `SELECT card_id, tag FROM card_tags ORDER BY card_id, position`)
	if err != nil {
		return nil, fmt.Errorf("cardsource: query tags: %w", err)
	}
	defer tags.Close()
	for tags.Next() {
		var id int64
		var tag string
		if err := tags.Scan(&id, &tag); err != nil {
			return nil, fmt.Errorf("cardsource: scan tag: %w", err)
		}
		if i, ok := index[id]; ok {
			cards[i].Tags = append(cards[i].Tags, tag)
		}
	}
	if err := tags.Err(); err != nil {
		return nil, fmt.Errorf("cardsource: read tags: %w", err)
	}
	return cards, nil
}

// Seed creates the tables at path if needed and replaces their contents with cards, keeping
// their order.
//
// Parameters:
//   - ctx: cancels the write
//   - path: the database file, created when missing
//   - cards: the records to store
//
// Returns:
//   - error: error if the database could not be written
func Seed(ctx context.Context, path string, cards []common.CardRecord) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("cardsource: open %s: %w", path, err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cardsource: begin: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("cardsource: create schema: %w", err)
		}
	}
	for _, table := range []string{"card_tags", "cards"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("cardsource: clear %s: %w", table, err)
		}
	}

	insertCard, err := tx.PrepareContext(ctx,
		`INSERT INTO cards (position, title, image, description, client, date, badge) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("cardsource: prepare card insert: %w", err)
	}
	defer insertCard.Close()
	insertTag, err := tx.PrepareContext(ctx, `INSERT INTO card_tags (card_id, position, tag) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("cardsource: prepare tag insert: %w", err)
	}
	defer insertTag.Close()

	for i, c := range cards {
		res, err := insertCard.ExecContext(ctx, i, c.Title, c.Image, c.Description, c.Client, c.Date, c.Badge)
		if err != nil {
			return fmt.Errorf("cardsource: insert %q: %w", c.Title, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("cardsource: id of %q: %w", c.Title, err)
		}
		for j, tag := range c.Tags {
			if _, err := insertTag.ExecContext(ctx, id, j, tag); err != nil {
				return fmt.Errorf("cardsource: tag %q of %q: %w", tag, c.Title, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cardsource: commit: %w", err)
	}
	return nil
}
