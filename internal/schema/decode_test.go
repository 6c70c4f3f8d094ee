package schema

import (
	"encoding/json"
	"testing"
)

func toObj(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return obj
}

func TestDecodeSelectorResult(t *testing.T) {
	obj := toObj(t, `{
        "total_days": 1,
        "total_people": 2,
        "start_date": "2025-01-15",
        "daily_meals": [
            {
                "date": "2025-01-15",
                "breakfast": [
                    {"dish_name": "蔥花蛋餅", "ingredients": [
                        {"name": "蛋", "allocated_quantity": 2},
                        {"name": "蔥", "allocated_quantity": 0.5}
                    ]}
                ],
                "lunch": [],
                "dinner": []
            }
        ],
        "reasoning": "extra field is tolerated"
    }`)
	res, err := DecodeSelectorResult(obj)
	if err != nil {
		t.Fatalf("expected decode to succeed: %v", err)
	}
	if res.TotalDays != 1 || res.TotalPeople != 2 {
		t.Fatalf("unexpected counts: %+v", res)
	}
	if got := res.DailyMeals[0].Breakfast[0].MainIngredient(); got != "蛋" {
		t.Fatalf("expected main ingredient 蛋, got %q", got)
	}
}

func TestDecodeSelectorResultEmptySentinel(t *testing.T) {
	obj := toObj(t, `{"total_days": 0, "total_people": 0, "daily_meals": []}`)
	res, err := DecodeSelectorResult(obj)
	if err != nil {
		t.Fatalf("empty sentinel must decode: %v", err)
	}
	if !res.IsEmpty() {
		t.Fatalf("expected empty sentinel, got %+v", res)
	}
}

func TestDecodeSelectorResultRejectsWrongTypes(t *testing.T) {
	cases := []string{
		`{"total_days": "three", "total_people": 2, "daily_meals": []}`,
		`{"total_days": 1, "total_people": 2, "daily_meals": "not a list"}`,
		`{"total_days": 1, "total_people": 2, "daily_meals": [{"date": "2025-01-15", "breakfast": [{"dish_name": "x", "ingredients": []}]}]}`,
	}
	for _, c := range cases {
		if _, err := DecodeSelectorResult(toObj(t, c)); err == nil {
			t.Fatalf("expected validation to fail for %s", c)
		}
	}
}

func TestDecodeSelectorResultRejectsMissingRequired(t *testing.T) {
	obj := toObj(t, `{"start_date": "2025-01-15"}`)
	if _, err := DecodeSelectorResult(obj); err == nil {
		t.Fatal("expected validation to fail when required fields are missing")
	}
}

func TestDecodeSelectorResultDayCountMismatch(t *testing.T) {
	obj := toObj(t, `{
        "total_days": 2,
        "total_people": 2,
        "start_date": "2025-01-15",
        "daily_meals": [{"date": "2025-01-15"}]
    }`)
	if _, err := DecodeSelectorResult(obj); err == nil {
		t.Fatal("expected mismatch between total_days and daily_meals to fail")
	}
}

func TestDecodeSelectorResultNonConsecutiveDates(t *testing.T) {
	obj := toObj(t, `{
        "total_days": 2,
        "total_people": 2,
        "start_date": "2025-01-15",
        "daily_meals": [{"date": "2025-01-15"}, {"date": "2025-01-20"}]
    }`)
	if _, err := DecodeSelectorResult(obj); err == nil {
		t.Fatal("expected non-consecutive dates to fail")
	}
}

func TestDecodeMenuPlan(t *testing.T) {
	obj := toObj(t, `{
        "menu_plan": {"start_date": "2025-01-15", "days": 1, "people": 2, "daytimes": ["早餐", "午餐", "晚餐"]},
        "schedule": [
            {
                "date": "2025-01-15",
                "breakfast": [
                    {"recipe_name": "蔥花蛋餅", "main_ingredient": "蛋",
                     "ingredients": [{"name": "蛋", "amount": "2顆"}],
                     "steps": ["打蛋", "煎餅皮", "捲起切段"]}
                ]
            }
        ]
    }`)
	plan, err := DecodeMenuPlan(obj)
	if err != nil {
		t.Fatalf("expected decode to succeed: %v", err)
	}
	if plan.MenuPlan.People != 2 || len(plan.Schedule) != 1 {
		t.Fatalf("unexpected plan: %+v", plan)
	}
	if plan.Schedule[0].Breakfast[0].RecipeName != "蔥花蛋餅" {
		t.Fatalf("unexpected recipe: %+v", plan.Schedule[0].Breakfast[0])
	}
}

func TestDecodeMenuPlanRejectsBadSchedule(t *testing.T) {
	obj := toObj(t, `{
        "menu_plan": {"start_date": "2025-01-15", "days": 1, "people": 2, "daytimes": []},
        "schedule": [{"date": "2025-01-15", "breakfast": [{"ingredients": []}]}]
    }`)
	if _, err := DecodeMenuPlan(obj); err == nil {
		t.Fatal("expected recipe without recipe_name to fail")
	}
}

func TestValidUnit(t *testing.T) {
	for _, u := range []Unit{UnitPiece, UnitGram, UnitMilliliter} {
		if !ValidUnit(u) {
			t.Fatalf("%s should be valid", u)
		}
	}
	if ValidUnit("公斤") {
		t.Fatal("公斤 should be rejected")
	}
}
