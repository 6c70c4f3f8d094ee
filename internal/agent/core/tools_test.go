package core

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/menufest/menufest/internal/recipes"
	"github.com/menufest/menufest/internal/store"
)

type fakeInventory struct {
	page    store.InventoryPage
	lastErr error

	gotUserID string
	gotName   string
	gotLimit  int
	gotOffset int
}

func (f *fakeInventory) SearchFridge(ctx context.Context, userID, nameContains string, limit, offset int) (store.InventoryPage, error) {
	f.gotUserID = userID
	f.gotName = nameContains
	f.gotLimit = limit
	f.gotOffset = offset
	return f.page, f.lastErr
}

func testRecipeCorpus(t *testing.T) *recipes.Corpus {
	t.Helper()
	c, err := recipes.FromRecipes([]recipes.Recipe{
		{Title: "番茄炒蛋", Ingredients: []string{"番茄", "雞蛋"}, Steps: []string{"a", "b", "c"}, CookingTime: 15, Tags: []string{"家常菜"}},
		{Title: "紅燒牛肉", Ingredients: []string{"牛肉"}, Steps: []string{"a", "b", "c", "d", "e", "f"}, CookingTime: 90, Tags: []string{"燉菜"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestSelectorToolsetBindsUser(t *testing.T) {
	inv := &fakeInventory{}
	ts := SelectorToolset(inv, "user-42", 10)

	out := ts.Dispatch(context.Background(), ToolCall{
		ID:        "1",
		Name:      "search_fridge",
		Arguments: `{"name_contains": "蛋", "offset": 20}`,
	})
	if isErrorPayload(out) {
		t.Fatalf("unexpected error payload: %s", out)
	}
	if inv.gotUserID != "user-42" {
		t.Fatalf("user not bound, got %q", inv.gotUserID)
	}
	if inv.gotName != "蛋" || inv.gotLimit != 10 || inv.gotOffset != 20 {
		t.Fatalf("wrong args: name=%q limit=%d offset=%d", inv.gotName, inv.gotLimit, inv.gotOffset)
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	ts := NewToolset()
	out := ts.Dispatch(context.Background(), ToolCall{Name: "nope"})
	if !isErrorPayload(out) {
		t.Fatalf("expected error payload, got %s", out)
	}
}

func TestDispatchBadArguments(t *testing.T) {
	ts := SelectorToolset(&fakeInventory{}, "u", 10)
	out := ts.Dispatch(context.Background(), ToolCall{Name: "search_fridge", Arguments: "not json"})
	if !isErrorPayload(out) {
		t.Fatalf("expected error payload, got %s", out)
	}
}

func TestPlannerToolsetSearchByIngredient(t *testing.T) {
	ts := PlannerToolset(testRecipeCorpus(t))

	out := ts.Dispatch(context.Background(), ToolCall{
		Name:      "search_recipe_by_ingredient",
		Arguments: `{"ingredients": "雞蛋,牛肉", "max_results": 5}`,
	})
	var result struct {
		TotalFound int              `json:"total_found"`
		Recipes    []recipes.Recipe `json:"recipes"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("bad payload %s: %v", out, err)
	}
	if result.TotalFound != 2 {
		t.Fatalf("expected both recipes, got %d", result.TotalFound)
	}
}

func TestPlannerToolsetSearchByTags(t *testing.T) {
	ts := PlannerToolset(testRecipeCorpus(t))

	out := ts.Dispatch(context.Background(), ToolCall{
		Name:      "search_recipes_by_tags",
		Arguments: `{"tags": "#家常菜，烤箱料理"}`,
	})
	var result struct {
		TotalFound int      `json:"total_found"`
		SearchTags []string `json:"search_tags"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("bad payload %s: %v", out, err)
	}
	if result.TotalFound != 1 {
		t.Fatalf("expected one tag hit, got %d", result.TotalFound)
	}
	if len(result.SearchTags) != 2 {
		t.Fatalf("fullwidth comma not split: %v", result.SearchTags)
	}
}

func TestPlannerToolsetFilterDefaultsToCorpus(t *testing.T) {
	ts := PlannerToolset(testRecipeCorpus(t))

	out := ts.Dispatch(context.Background(), ToolCall{
		Name:      "filter_recipes_by_constraints",
		Arguments: `{"constraints": "max_time:30,max_steps:5"}`,
	})
	if !strings.Contains(out, "番茄炒蛋") || strings.Contains(out, "紅燒牛肉") {
		t.Fatalf("unexpected filter result: %s", out)
	}
}

func TestParseConstraints(t *testing.T) {
	maxTime, maxSteps, err := parseConstraints("max_time:30, max_steps:5")
	if err != nil || maxTime != 30 || maxSteps != 5 {
		t.Fatalf("got time=%d steps=%d err=%v", maxTime, maxSteps, err)
	}
	if _, _, err := parseConstraints("max_time:abc"); err == nil {
		t.Fatal("expected error for non-numeric value")
	}
	maxTime, maxSteps, err = parseConstraints("")
	if err != nil || maxTime != 0 || maxSteps != 0 {
		t.Fatalf("empty constraints should disable limits, got time=%d steps=%d err=%v", maxTime, maxSteps, err)
	}
}

func TestIntArg(t *testing.T) {
	args := map[string]interface{}{
		"number": float64(20),
		"quoted": "7",
		"bad":    "abc",
	}
	if got := intArg(args, "number", 0); got != 20 {
		t.Fatalf("expected 20, got %d", got)
	}
	if got := intArg(args, "quoted", 0); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
	if got := intArg(args, "bad", 3); got != 3 {
		t.Fatalf("expected fallback, got %d", got)
	}
	if got := intArg(args, "missing", 10); got != 10 {
		t.Fatalf("expected fallback, got %d", got)
	}
}
