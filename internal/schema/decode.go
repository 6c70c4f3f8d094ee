package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed selector_schema.json
var selectorSchemaJSON string

//go:embed menu_plan_schema.json
var menuPlanSchemaJSON string

var (
	compileOnce    sync.Once
	selectorSchema *jsonschema.Schema
	menuPlanSchema *jsonschema.Schema
	compileErr     error
)

func compiled() (*jsonschema.Schema, *jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("selector_schema.json", strings.NewReader(selectorSchemaJSON)); err != nil {
			compileErr = fmt.Errorf("add selector schema resource: %w", err)
			return
		}
		if err := compiler.AddResource("menu_plan_schema.json", strings.NewReader(menuPlanSchemaJSON)); err != nil {
			compileErr = fmt.Errorf("add menu plan schema resource: %w", err)
			return
		}
		sel, err := compiler.Compile("selector_schema.json")
		if err != nil {
			compileErr = fmt.Errorf("compile selector schema: %w", err)
			return
		}
		menu, err := compiler.Compile("menu_plan_schema.json")
		if err != nil {
			compileErr = fmt.Errorf("compile menu plan schema: %w", err)
			return
		}
		selectorSchema = sel
		menuPlanSchema = menu
	})
	return selectorSchema, menuPlanSchema, compileErr
}

// validate round-trips obj through encoding/json so values recovered with
// json.Number are normalised before schema validation.
func validate(sch *jsonschema.Schema, obj map[string]interface{}) ([]byte, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("marshal recovered object: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("recovered object is not valid JSON: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	return data, nil
}

// DecodeSelectorResult maps a recovered key-value structure onto the
// SelectorResult schema. Extra fields are tolerated and dropped; type
// mismatches on required structure are rejected. An empty sentinel decodes
// successfully.
func DecodeSelectorResult(obj map[string]interface{}) (SelectorResult, error) {
	sel, _, err := compiled()
	if err != nil {
		return SelectorResult{}, err
	}
	data, err := validate(sel, obj)
	if err != nil {
		return SelectorResult{}, err
	}
	var res SelectorResult
	if err := json.Unmarshal(data, &res); err != nil {
		return SelectorResult{}, fmt.Errorf("decode selector result: %w", err)
	}
	if err := checkSelectorInvariants(res); err != nil {
		return SelectorResult{}, err
	}
	if res.DailyMeals == nil {
		res.DailyMeals = []DayMeal{}
	}
	return res, nil
}

// checkSelectorInvariants enforces the contracts the schema cannot express:
// day count consistency, consecutive dates from start_date, and the
// positional main-ingredient convention (every dish carries at least one
// ingredient, which the schema guarantees; here we additionally require
// the day list to match total_days).
func checkSelectorInvariants(res SelectorResult) error {
	if res.IsEmpty() {
		return nil
	}
	if res.TotalDays != len(res.DailyMeals) {
		return fmt.Errorf("total_days=%d but %d daily_meals present", res.TotalDays, len(res.DailyMeals))
	}
	start, err := time.Parse("2006-01-02", res.StartDate)
	if err != nil {
		// Dates the model formatted loosely are tolerated; only the
		// structure is mandatory.
		return nil
	}
	for i, day := range res.DailyMeals {
		d, err := time.Parse("2006-01-02", day.Date)
		if err != nil {
			return nil
		}
		if want := start.AddDate(0, 0, i); !d.Equal(want) {
			return fmt.Errorf("daily_meals[%d].date=%s, want consecutive date %s", i, day.Date, want.Format("2006-01-02"))
		}
	}
	return nil
}

// DecodeMenuPlan maps a recovered key-value structure onto the MenuPlan
// schema: a plan document with a "menu_plan" metadata object and a
// "schedule" of per-day recipes.
func DecodeMenuPlan(obj map[string]interface{}) (MenuPlan, error) {
	_, menu, err := compiled()
	if err != nil {
		return MenuPlan{}, err
	}
	data, err := validate(menu, obj)
	if err != nil {
		return MenuPlan{}, err
	}
	var plan MenuPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return MenuPlan{}, fmt.Errorf("decode menu plan: %w", err)
	}
	return plan, nil
}
