package core

import (
	"fmt"

	"github.com/menufest/menufest/internal/schema"
)

// Meal labels in slot order.
var mealLabels = []string{"早餐", "午餐", "晚餐"}

// ConvertToGroups flattens a selector result into planner input: one
// group per dish, walking days in order and meal slots
// breakfast/lunch/dinner within each day. The dish's first ingredient
// becomes the main ingredient, the rest become supporting ingredients.
// Dishes without ingredients are skipped.
func ConvertToGroups(result schema.SelectorResult) []schema.IngredientGroup {
	groups := []schema.IngredientGroup{}
	totalAmount := fmt.Sprintf("%d人份", result.TotalPeople)

	for dayIdx, day := range result.DailyMeals {
		slots := [][]schema.Dish{day.Breakfast, day.Lunch, day.Dinner}
		for slotIdx, dishes := range slots {
			for _, dish := range dishes {
				if len(dish.Ingredients) == 0 {
					continue
				}
				supporting := make([]string, 0, len(dish.Ingredients)-1)
				for _, ing := range dish.Ingredients[1:] {
					supporting = append(supporting, ing.Name)
				}
				groups = append(groups, schema.IngredientGroup{
					MainIngredient:        dish.Ingredients[0].Name,
					SupportingIngredients: supporting,
					TotalAmount:           totalAmount,
					Day:                   dayIdx + 1,
					Meal:                  mealLabels[slotIdx],
					DishName:              dish.DishName,
				})
			}
		}
	}
	return groups
}
