// Package recipes holds the recipe corpus loaded at startup and the
// lookups the planner tools are built on.
package recipes

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve"
)

// Recipe is one corpus entry as it appears in the data file.
type Recipe struct {
	Title       string   `json:"title"`
	Ingredients []string `json:"ingredients"`
	Steps       []string `json:"steps"`
	CookingTime int      `json:"cooking_time"`
	Servings    int      `json:"servings"`
	URL         string   `json:"url"`
	Tags        []string `json:"tags"`
}

type corpusFile struct {
	Recipes []Recipe `json:"recipes"`
}

// Corpus is an immutable recipe collection with a full-text index over
// titles and ingredient names. Build it once at startup and share the
// handle; it is safe for concurrent readers.
type Corpus struct {
	recipes []Recipe
	index   bleve.Index
}

// Load reads the corpus data file and builds the in-memory index.
func Load(path string) (*Corpus, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipe corpus: %w", err)
	}
	var file corpusFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse recipe corpus: %w", err)
	}
	return FromRecipes(file.Recipes)
}

// FromRecipes builds a corpus directly from entries already in memory.
func FromRecipes(entries []Recipe) (*Corpus, error) {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create recipe index: %w", err)
	}
	for i, r := range entries {
		doc := map[string]interface{}{
			"title":       r.Title,
			"ingredients": strings.Join(r.Ingredients, " "),
		}
		if err := index.Index(strconv.Itoa(i), doc); err != nil {
			return nil, fmt.Errorf("index recipe %q: %w", r.Title, err)
		}
	}
	return &Corpus{recipes: entries, index: index}, nil
}

// Len reports the number of recipes in the corpus.
func (c *Corpus) Len() int { return len(c.recipes) }

// All returns every recipe in corpus order.
func (c *Corpus) All() []Recipe {
	out := make([]Recipe, len(c.recipes))
	copy(out, c.recipes)
	return out
}

// SearchByIngredient finds recipes whose title or ingredient list
// matches the given ingredient, best match first. A full-text miss
// falls back to a plain substring scan so single CJK tokens still hit.
func (c *Corpus) SearchByIngredient(ingredient string, limit int) ([]Recipe, error) {
	ingredient = strings.TrimSpace(ingredient)
	if ingredient == "" || limit <= 0 {
		return nil, nil
	}
	query := bleve.NewQueryStringQuery(ingredient)
	req := bleve.NewSearchRequestOptions(query, limit, 0, false)
	result, err := c.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search recipes: %w", err)
	}
	out := make([]Recipe, 0, len(result.Hits))
	for _, hit := range result.Hits {
		i, err := strconv.Atoi(hit.ID)
		if err != nil || i < 0 || i >= len(c.recipes) {
			continue
		}
		out = append(out, c.recipes[i])
	}
	if len(out) > 0 {
		return out, nil
	}
	return c.scanByIngredient(ingredient, limit), nil
}

func (c *Corpus) scanByIngredient(ingredient string, limit int) []Recipe {
	var out []Recipe
	for _, r := range c.recipes {
		if len(out) >= limit {
			break
		}
		if strings.Contains(r.Title, ingredient) {
			out = append(out, r)
			continue
		}
		for _, ing := range r.Ingredients {
			if strings.Contains(ing, ingredient) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// SearchByTags returns recipes matching any of the given tags. Matching
// is case-insensitive and bidirectional: a recipe tag containing the
// query, or the query containing the recipe tag, both count. Leading
// '#' markers on either side are ignored.
func (c *Corpus) SearchByTags(tags []string) []Recipe {
	wanted := make([]string, 0, len(tags))
	for _, t := range tags {
		t = normalizeTag(t)
		if t != "" {
			wanted = append(wanted, t)
		}
	}
	if len(wanted) == 0 {
		return nil
	}
	var out []Recipe
	for _, r := range c.recipes {
		if tagsMatch(r.Tags, wanted) {
			out = append(out, r)
		}
	}
	return out
}

func tagsMatch(recipeTags, wanted []string) bool {
	for _, rt := range recipeTags {
		rt = normalizeTag(rt)
		if rt == "" {
			continue
		}
		for _, w := range wanted {
			if strings.Contains(rt, w) || strings.Contains(w, rt) {
				return true
			}
		}
	}
	return false
}

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), "#"))
}

// FilterByConstraints keeps recipes within the cooking time and step
// count limits. A limit of zero or less disables that check. Step count
// is the length of the steps list.
func FilterByConstraints(in []Recipe, maxTime, maxSteps int) []Recipe {
	out := make([]Recipe, 0, len(in))
	for _, r := range in {
		if maxTime > 0 && r.CookingTime > maxTime {
			continue
		}
		if maxSteps > 0 && len(r.Steps) > maxSteps {
			continue
		}
		out = append(out, r)
	}
	return out
}
