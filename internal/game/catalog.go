// internal/game/catalog.go
package game

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
)

// Difficulty is a word-list tier inside a category.
type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

// Difficulties lists every tier in display order.
var Difficulties = []Difficulty{Easy, Medium, Hard}

const (
	// CustomCategoryID designates the crowd-sourced word pot.
	CustomCategoryID = "custom"
	// CustomCategoryName is the label shown for words drawn from the pot.
	CustomCategoryName = "Custom Pot"
)

// Category is a selectable word source.
type Category struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Icon   string `json:"icon"`
	Custom bool   `json:"custom,omitempty"`
}

// Catalog is the static word dataset: categories in display order plus their tiered lists.
type Catalog struct {
	Categories []Category                         `json:"categories"`
	Words      map[string]map[Difficulty][]string `json:"words"`
}

//go:embed data/catalog.json
var defaultCatalogJSON []byte

var defaultCatalog *Catalog

func init() {
	c, err := ParseCatalog(defaultCatalogJSON)
	if err != nil {
		panic(fmt.Errorf("embedded word catalog: %w", err))
	}
	defaultCatalog = c
}

// DefaultCatalog returns the embedded dataset.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

// ParseCatalog decodes a catalog from JSON.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if len(c.Categories) == 0 {
		return nil, fmt.Errorf("catalog has no categories")
	}
	return &c, nil
}

// Category looks up a category by id.
func (c *Catalog) Category(id string) (Category, bool) {
	for _, cat := range c.Categories {
		if cat.ID == id {
			return cat, true
		}
	}
	return Category{}, false
}

// CategoryIDs returns every category id in display order.
func (c *Catalog) CategoryIDs() []string {
	ids := make([]string, 0, len(c.Categories))
	for _, cat := range c.Categories {
		ids = append(ids, cat.ID)
	}
	return ids
}

// IsCustomSelection reports whether categoryIDs names the word pot.
func IsCustomSelection(categoryIDs []string) bool {
	return slices.Contains(categoryIDs, CustomCategoryID)
}
