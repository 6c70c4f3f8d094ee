package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/menufest/menufest/internal/schema"
)

func sampleSelectorResult() schema.SelectorResult {
	return schema.SelectorResult{
		TotalDays:   1,
		TotalPeople: 2,
		StartDate:   "2025-01-10",
		DailyMeals: []schema.DayMeal{{
			Date: "2025-01-10",
			Breakfast: []schema.Dish{{
				DishName: "番茄炒蛋",
				Ingredients: []schema.IngredientRef{
					{Name: "雞蛋", AllocatedQuantity: 3},
					{Name: "番茄", AllocatedQuantity: 2},
				},
			}},
			Lunch:  []schema.Dish{},
			Dinner: []schema.Dish{},
		}},
	}
}

func TestSaveAndLoadSelector(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	want := sampleSelectorResult()
	path, err := store.SaveSelector(want)
	if err != nil {
		t.Fatalf("SaveSelector failed: %v", err)
	}
	name := filepath.Base(path)
	if !strings.HasPrefix(name, "selector_output_") || !strings.HasSuffix(name, ".json") {
		t.Fatalf("unexpected artifact name %q", name)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("artifact is not valid JSON: %v", err)
	}
	if doc["generated_at"] == "" || doc["generated_at"] == nil {
		t.Fatal("artifact missing generated_at")
	}

	got, err := store.LoadSelector(path)
	if err != nil {
		t.Fatalf("LoadSelector failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestLoadSelectorRelativeName(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path, err := store.SaveSelector(sampleSelectorResult())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.LoadSelector(filepath.Base(path)); err != nil {
		t.Fatalf("load by bare name failed: %v", err)
	}
}

func TestSavePlannerFailureEnvelope(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	resp := schema.EmptyPlannerResponse("no parsable JSON in model output", "here is soup, not JSON")
	path, err := store.SavePlanner(resp)
	if err != nil {
		t.Fatalf("SavePlanner failed: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var art PlannerArtifact
	if err := json.Unmarshal(raw, &art); err != nil {
		t.Fatal(err)
	}
	if art.Success {
		t.Fatal("failure artifact marked successful")
	}
	if art.Error == "" || art.RawResponse == "" {
		t.Fatalf("failure artifact missing trace fields: %+v", art)
	}
}

func TestSaveNeverOverwrites(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		path, err := store.SaveSelector(sampleSelectorResult())
		if err != nil {
			t.Fatal(err)
		}
		if seen[path] {
			t.Fatalf("artifact path %q reused", path)
		}
		seen[path] = true
	}
}
