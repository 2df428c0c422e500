package cardsource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Carmen-Shannon/oxy-tiles/common"
)

func TestParseYAMLList(t *testing.T) {
	data := []byte(`
- title: One
  client: Acme
  tags: [a, b]
- title: Two
  image: https://example.com/two.png
`)
	cards, err := ParseYAML(data)
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	if len(cards) != 2 || cards[0].Title != "One" || cards[1].Title != "Two" {
		t.Fatalf("cards = %+v", cards)
	}
	if !reflect.DeepEqual(cards[0].Tags, []string{"a", "b"}) {
		t.Fatalf("tags = %v", cards[0].Tags)
	}
	if cards[1].Tags == nil {
		t.Fatal("missing tags should decode as an empty list")
	}
}

func TestParseYAMLDocument(t *testing.T) {
	cards, err := ParseYAML([]byte("cards:\n  - title: Only\n"))
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	if len(cards) != 1 || cards[0].Slug() != "only" {
		t.Fatalf("cards = %+v", cards)
	}
}

func TestParseYAMLEmpty(t *testing.T) {
	if _, err := ParseYAML([]byte("cards: []\n")); !errors.Is(err, ErrEmpty) {
		t.Fatalf("err = %v, want ErrEmpty", err)
	}
}

func TestYAMLSourceReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.yaml")
	if err := os.WriteFile(path, []byte("- title: File Card\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cards, err := YAMLSource{Path: path}.Cards(context.Background())
	if err != nil {
		t.Fatalf("Cards: %v", err)
	}
	if cards[0].Title != "File Card" {
		t.Fatalf("cards = %+v", cards)
	}

	if _, err := (YAMLSource{Path: path + ".missing"}).Cards(context.Background()); err == nil {
		t.Fatal("missing file should fail")
	}
}

func TestSQLiteRoundTripKeepsOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.db")
	ctx := context.Background()
	want := Sample()
	if err := Seed(ctx, path, want); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	got, err := SQLiteSource{Path: path}.Cards(ctx)
	if err != nil {
		t.Fatalf("Cards: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("cards differ\n got %+v\nwant %+v", got, want)
	}

	// reseeding replaces the previous contents
	if err := Seed(ctx, path, want[:2]); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	got, err = SQLiteSource{Path: path}.Cards(ctx)
	if err != nil {
		t.Fatalf("Cards: %v", err)
	}
	if len(got) != 2 || got[1].Title != want[1].Title {
		t.Fatalf("cards after reseed = %+v", got)
	}
}

func TestSQLiteEmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	if err := Seed(context.Background(), path, nil); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if _, err := (SQLiteSource{Path: path}).Cards(context.Background()); !errors.Is(err, ErrEmpty) {
		t.Fatalf("err = %v, want ErrEmpty", err)
	}
}

func TestSQLiteKeepsTagsWithSeparators(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tags.db")
	ctx := context.Background()
	want := []common.CardRecord{
		{Title: "Commas", Tags: []string{"Art, Direction", "3D", ""}},
		{Title: "No tags", Tags: []string{}},
		{Title: "Quotes", Tags: []string{`say "hi"`, "a\x1fb"}},
	}
	if err := Seed(ctx, path, want); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	got, err := SQLiteSource{Path: path}.Cards(ctx)
	if err != nil {
		t.Fatalf("Cards: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("cards differ\n got %+v\nwant %+v", got, want)
	}
}
