// Package schema defines the typed wire contracts for the two pipeline
// stages and validates recovered model output against them.
package schema

// Unit is the fixed unit-of-measure enumeration for inventory items.
type Unit string

const (
	UnitPiece      Unit = "個"  // count
	UnitGram       Unit = "克"  // weight
	UnitMilliliter Unit = "毫升" // volume
)

// ValidUnit reports whether u is one of the allowed units.
func ValidUnit(u Unit) bool {
	switch u {
	case UnitPiece, UnitGram, UnitMilliliter:
		return true
	}
	return false
}

// InventoryItem is a fridge ingredient as returned by the inventory store.
// Read-only from this core's perspective.
type InventoryItem struct {
	IngredientID      string  `json:"ingredient_id"`
	Name              string  `json:"name"`
	Unit              Unit    `json:"unit"`
	QuantityAvailable float64 `json:"quantity_available"`
	ExpiryDate        string  `json:"expiry_date,omitempty"` // YYYY-MM-DD, empty when unknown
}

// IngredientRef is a name plus an allocated quantity inside a Dish.
type IngredientRef struct {
	Name              string  `json:"name"`
	AllocatedQuantity float64 `json:"allocated_quantity"`
}

// Dish groups ingredient allocations under a dish name. The first entry of
// Ingredients is by convention the main ingredient; the list order must be
// preserved to recover that distinction.
type Dish struct {
	DishName    string          `json:"dish_name"`
	Ingredients []IngredientRef `json:"ingredients"`
}

// MainIngredient returns the name of the dish's main ingredient, or ""
// when the dish has no ingredients.
func (d Dish) MainIngredient() string {
	if len(d.Ingredients) == 0 {
		return ""
	}
	return d.Ingredients[0].Name
}

// DayMeal is a calendar date with dishes per meal slot.
type DayMeal struct {
	Date      string `json:"date"`
	Breakfast []Dish `json:"breakfast"`
	Lunch     []Dish `json:"lunch"`
	Dinner    []Dish `json:"dinner"`
}

// SelectorResult is the Selector stage output: total_days consecutive
// dates of grouped dishes starting at start_date.
type SelectorResult struct {
	TotalDays   int       `json:"total_days"`
	TotalPeople int       `json:"total_people"`
	StartDate   string    `json:"start_date"`
	DailyMeals  []DayMeal `json:"daily_meals"`
}

// EmptySelectorResult is the stage's sentinel for "no usable inventory":
// well-typed, zero content, not an error.
func EmptySelectorResult() SelectorResult {
	return SelectorResult{DailyMeals: []DayMeal{}}
}

// IsEmpty reports whether the result is the empty sentinel.
func (r SelectorResult) IsEmpty() bool { return len(r.DailyMeals) == 0 }

// IngredientGroup is the flattened unit of work handed from the Selector
// output to the Planner input. Day, Meal and DishName are provenance
// metadata only and play no role in planning logic.
type IngredientGroup struct {
	MainIngredient        string   `json:"main_ingredient"`
	SupportingIngredients []string `json:"supporting_ingredients"`
	TotalAmount           string   `json:"total_amount"`
	Day                   int      `json:"day"`
	Meal                  string   `json:"meal"`
	DishName              string   `json:"dish_name"`
}

// IngredientItem is a (name, amount) pair inside a recipe.
type IngredientItem struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

// RecipeItem is a planned recipe for one meal slot.
type RecipeItem struct {
	RecipeName     string           `json:"recipe_name"`
	MainIngredient string           `json:"main_ingredient"`
	Ingredients    []IngredientItem `json:"ingredients"`
	URL            string           `json:"url,omitempty"`
	Steps          []string         `json:"steps,omitempty"`
}

// DaySchedule mirrors DayMeal with recipes instead of dishes.
type DaySchedule struct {
	Date      string       `json:"date"`
	Breakfast []RecipeItem `json:"breakfast"`
	Lunch     []RecipeItem `json:"lunch"`
	Dinner    []RecipeItem `json:"dinner"`
}

// MenuPlanInfo carries plan-level metadata.
type MenuPlanInfo struct {
	StartDate string   `json:"start_date"`
	Days      int      `json:"days"`
	People    int      `json:"people"`
	Daytimes  []string `json:"daytimes"`
}

// MenuPlan is the Planner stage's full plan document.
type MenuPlan struct {
	MenuPlan MenuPlanInfo  `json:"menu_plan"`
	Schedule []DaySchedule `json:"schedule"`
}

// PlannerResponse is the Planner stage envelope. Error and RawResponse are
// populated on parse failure so no invocation goes untraced.
type PlannerResponse struct {
	Success     bool      `json:"success"`
	MenuPlan    *MenuPlan `json:"menu_plan,omitempty"`
	Message     string    `json:"message,omitempty"`
	Error       string    `json:"error,omitempty"`
	RawResponse string    `json:"raw_response,omitempty"`
}

// EmptyPlannerResponse is the Planner's failure sentinel.
func EmptyPlannerResponse(errMsg, raw string) PlannerResponse {
	return PlannerResponse{Success: false, Error: errMsg, RawResponse: raw}
}
