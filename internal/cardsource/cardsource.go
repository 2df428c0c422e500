// Package cardsource loads the ordered card records shown on the wall from a YAML file or a
// SQLite database. It stands in for the content service a deployment would query.
package cardsource

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-tiles/common"
	"gopkg.in/yaml.v3"
)

// ErrEmpty is returned when a source holds no records.
var ErrEmpty = errors.New("cardsource: no cards")

// Source supplies card records in display order.
type Source interface {
	Cards(ctx context.Context) ([]common.CardRecord, error)
}

// YAMLSource reads a YAML list of cards from a file.
type YAMLSource struct {
	Path string
}

var _ Source = YAMLSource{}

// yamlDocument accepts either a bare list or a document with a top-level cards key.
type yamlDocument struct {
	Cards []common.CardRecord `yaml:"cards"`
}

func (y YAMLSource) Cards(ctx context.Context) ([]common.CardRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(y.Path)
	if err != nil {
		return nil, fmt.Errorf("cardsource: read %s: %w", y.Path, err)
	}
	cards, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("cardsource: %s: %w", y.Path, err)
	}
	return cards, nil
}

// ParseYAML decodes cards from data.
//
// Parameters:
//   - data: a YAML sequence of cards, or a mapping with a cards sequence
//
// Returns:
//   - []common.CardRecord: the records in document order
//   - error: a decode error or ErrEmpty
func ParseYAML(data []byte) ([]common.CardRecord, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	var cards []common.CardRecord
	if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
		if err := node.Content[0].Decode(&cards); err != nil {
			return nil, fmt.Errorf("decode cards: %w", err)
		}
	} else {
		var doc yamlDocument
		if err := node.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode cards: %w", err)
		}
		cards = doc.Cards
	}
	if len(cards) == 0 {
		return nil, ErrEmpty
	}
	for i := range cards {
		if cards[i].Tags == nil {
			cards[i].Tags = []string{}
		}
	}
	return cards, nil
}

// Sample returns the built-in demo cards.
func Sample() []common.CardRecord {
	return []common.CardRecord{
		{Title: "Northern Lights", Client: "Aurora Co", Description: "Brand system", Tags: []string{"Identity", "Motion"}, Date: "2024", Badge: "New"},
		{Title: "Tidal", Client: "Harbor Labs", Description: "Product launch", Tags: []string{"Web", "3D"}, Date: "2024"},
		{Title: "Field Notes", Client: "Atlas", Description: "Editorial site", Tags: []string{"Editorial"}, Date: "2023"},
		{Title: "Signal", Client: "Relay", Description: "Campaign", Tags: []string{"Campaign", "Film"}, Date: "2023"},
		{Title: "Monolith", Client: "Stone & Co", Description: "Installation", Tags: []string{"Spatial"}, Date: "2022"},
		{Title: "Afterglow", Client: "Lumen", Description: "App design", Tags: []string{"Product", "iOS"}, Date: "2022"},
		{Title: "Paper Planes", Client: "Kite", Description: "Interactive story", Tags: []string{"WebGL"}, Date: "2021"},
	}
}
