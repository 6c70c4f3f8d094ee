package recipes

import "testing"

func testCorpus(t *testing.T) *Corpus {
	t.Helper()
	c, err := FromRecipes([]Recipe{
		{
			Title:       "番茄炒蛋",
			Ingredients: []string{"番茄", "雞蛋", "蔥"},
			Steps:       []string{"打蛋", "切番茄", "下鍋炒", "調味"},
			CookingTime: 15,
			URL:         "https://recipes.example/1",
			Tags:        []string{"#家常菜", "快手"},
		},
		{
			Title:       "紅燒牛肉",
			Ingredients: []string{"牛肉", "薑", "醬油"},
			Steps:       []string{"汆燙", "爆香", "加水燉煮", "收汁", "裝盤", "撒蔥花"},
			CookingTime: 90,
			URL:         "https://recipes.example/2",
			Tags:        []string{"燉菜"},
		},
		{
			Title:       "蒸蛋",
			Ingredients: []string{"雞蛋", "水"},
			Steps:       []string{"打蛋加水", "過篩", "蒸八分鐘"},
			CookingTime: 12,
			URL:         "https://recipes.example/3",
			Tags:        []string{"家常菜", "清淡"},
		},
	})
	if err != nil {
		t.Fatalf("build corpus: %v", err)
	}
	return c
}

func TestSearchByIngredient(t *testing.T) {
	c := testCorpus(t)

	got, err := c.SearchByIngredient("雞蛋", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 egg recipes, got %d", len(got))
	}
	for _, r := range got {
		if r.Title != "番茄炒蛋" && r.Title != "蒸蛋" {
			t.Fatalf("unexpected recipe %q", r.Title)
		}
	}

	if got, _ := c.SearchByIngredient("鮭魚", 10); len(got) != 0 {
		t.Fatalf("expected no hits, got %d", len(got))
	}
	if got, _ := c.SearchByIngredient("", 10); got != nil {
		t.Fatalf("empty query should return nil, got %v", got)
	}
}

func TestSearchByTags(t *testing.T) {
	c := testCorpus(t)

	got := c.SearchByTags([]string{"家常菜"})
	if len(got) != 2 {
		t.Fatalf("expected 2 recipes for 家常菜, got %d", len(got))
	}

	// hash prefix and substring in either direction both match
	got = c.SearchByTags([]string{"#燉"})
	if len(got) != 1 || got[0].Title != "紅燒牛肉" {
		t.Fatalf("expected 紅燒牛肉 for #燉, got %+v", got)
	}
	got = c.SearchByTags([]string{"超級家常菜推薦"})
	if len(got) != 2 {
		t.Fatalf("expected bidirectional match, got %d", len(got))
	}

	if got := c.SearchByTags(nil); got != nil {
		t.Fatalf("expected nil for empty tags, got %v", got)
	}
}

func TestFilterByConstraints(t *testing.T) {
	c := testCorpus(t)
	all := c.All()

	got := FilterByConstraints(all, 30, 5)
	if len(got) != 2 {
		t.Fatalf("expected 2 recipes within 30min/5steps, got %d", len(got))
	}
	for _, r := range got {
		if r.CookingTime > 30 || len(r.Steps) > 5 {
			t.Fatalf("constraint violated by %q", r.Title)
		}
	}

	if got := FilterByConstraints(all, 0, 0); len(got) != len(all) {
		t.Fatalf("zero limits should disable filtering, got %d", len(got))
	}
	if got := FilterByConstraints(all, 10, 0); len(got) != 0 {
		t.Fatalf("expected none under 10 minutes, got %d", len(got))
	}
}
