package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/menufest/menufest/internal/recipes"
)

// ToolFunc executes one tool call with already-decoded arguments.
type ToolFunc func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Tool pairs a spec with its implementation.
type Tool struct {
	Spec ToolSpec
	Run  ToolFunc
}

// Toolset is the closed set of tools one stage exposes.
type Toolset struct {
	tools  []Tool
	byName map[string]Tool
}

// NewToolset builds a toolset. Tool names must be unique.
func NewToolset(tools ...Tool) *Toolset {
	ts := &Toolset{byName: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		ts.tools = append(ts.tools, t)
		ts.byName[t.Spec.Name] = t
	}
	return ts
}

// Specs returns the tool descriptions in registration order.
func (ts *Toolset) Specs() []ToolSpec {
	specs := make([]ToolSpec, 0, len(ts.tools))
	for _, t := range ts.tools {
		specs = append(specs, t.Spec)
	}
	return specs
}

// Dispatch runs one tool call and returns its JSON result. Unknown tools
// and tool failures come back as error payloads so the model can
// correct itself instead of killing the loop.
func (ts *Toolset) Dispatch(ctx context.Context, call ToolCall) string {
	tool, ok := ts.byName[call.Name]
	if !ok {
		return errorPayload(fmt.Sprintf("unknown tool %q", call.Name))
	}
	args := map[string]interface{}{}
	if strings.TrimSpace(call.Arguments) != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return errorPayload(fmt.Sprintf("invalid tool arguments: %v", err))
		}
	}
	result, err := tool.Run(ctx, args)
	if err != nil {
		return errorPayload(err.Error())
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return errorPayload(fmt.Sprintf("encode tool result: %v", err))
	}
	return string(encoded)
}

func errorPayload(msg string) string {
	encoded, _ := json.Marshal(map[string]string{"error": msg})
	return string(encoded)
}

// SelectorToolset exposes fridge lookup with the user ID bound in, so
// the model cannot read another user's inventory.
func SelectorToolset(inventory InventoryLookup, userID string, pageSize int) *Toolset {
	if pageSize <= 0 {
		pageSize = 25
	}
	return NewToolset(Tool{
		Spec: ToolSpec{
			Name:        "search_fridge",
			Description: "查詢冰箱食材。自動排除過期與數量為零的食材，按到期日由近到遠排序，支援名稱模糊搜尋與分頁。回傳 {items, total, page, pages}。",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name_contains": map[string]interface{}{
						"type":        "string",
						"description": "食材名稱模糊搜尋關鍵字，留空查詢全部",
					},
					"offset": map[string]interface{}{
						"type":        "integer",
						"description": "分頁起始位置，預設 0",
					},
				},
			},
		},
		Run: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			nameContains := stringArg(args, "name_contains", "")
			offset := intArg(args, "offset", 0)
			page, err := inventory.SearchFridge(ctx, userID, nameContains, pageSize, offset)
			if err != nil {
				return nil, fmt.Errorf("search_fridge: %w", err)
			}
			return page, nil
		},
	})
}

// PlannerToolset exposes the recipe corpus lookups.
func PlannerToolset(corpus RecipeSearch) *Toolset {
	return NewToolset(
		Tool{
			Spec: ToolSpec{
				Name:        "search_recipe_by_ingredient",
				Description: "根據食材搜尋適合的食譜。ingredients 用逗號分隔，例如 \"雞腿,洋蔥,番茄\"。",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"ingredients": map[string]interface{}{
							"type":        "string",
							"description": "食材列表，逗號分隔",
						},
						"max_results": map[string]interface{}{
							"type":        "integer",
							"description": "最大結果數，預設 10",
						},
					},
					"required": []string{"ingredients"},
				},
			},
			Run: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				terms := splitList(stringArg(args, "ingredients", ""))
				maxResults := intArg(args, "max_results", 10)
				found := make([]recipes.Recipe, 0, maxResults)
				seen := map[string]bool{}
				for _, term := range terms {
					if len(found) >= maxResults {
						break
					}
					hits, err := corpus.SearchByIngredient(term, maxResults)
					if err != nil {
						return nil, fmt.Errorf("search_recipe_by_ingredient: %w", err)
					}
					for _, r := range hits {
						if seen[r.Title] || len(found) >= maxResults {
							continue
						}
						seen[r.Title] = true
						found = append(found, r)
					}
				}
				return map[string]interface{}{"total_found": len(found), "recipes": found}, nil
			},
		},
		Tool{
			Spec: ToolSpec{
				Name:        "search_recipes_by_tags",
				Description: "根據標籤搜尋食譜。tags 用逗號分隔，例如 \"家常菜,烤箱料理,石斑料理\"。",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"tags": map[string]interface{}{
							"type":        "string",
							"description": "標籤列表，逗號分隔",
						},
						"max_results": map[string]interface{}{
							"type":        "integer",
							"description": "最大結果數，預設 10",
						},
					},
					"required": []string{"tags"},
				},
			},
			Run: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				tags := splitList(stringArg(args, "tags", ""))
				maxResults := intArg(args, "max_results", 10)
				hits := corpus.SearchByTags(tags)
				if len(hits) > maxResults {
					hits = hits[:maxResults]
				}
				return map[string]interface{}{
					"total_found": len(hits),
					"search_tags": tags,
					"recipes":     hits,
				}, nil
			},
		},
		Tool{
			Spec: ToolSpec{
				Name:        "filter_recipes_by_constraints",
				Description: "根據限制條件過濾食譜。recipes_json 是食譜列表的 JSON；constraints 格式如 \"max_time:30,max_steps:5\"，步驟數依 steps 陣列長度計算。",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"recipes_json": map[string]interface{}{
							"type":        "string",
							"description": "要過濾的食譜列表 JSON，留空則過濾整個食譜庫",
						},
						"constraints": map[string]interface{}{
							"type":        "string",
							"description": "限制條件，例如 max_time:30,max_steps:5",
						},
					},
				},
			},
			Run: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				candidates, err := decodeRecipeList(stringArg(args, "recipes_json", ""), corpus)
				if err != nil {
					return nil, err
				}
				maxTime, maxSteps, err := parseConstraints(stringArg(args, "constraints", ""))
				if err != nil {
					return nil, err
				}
				filtered := recipes.FilterByConstraints(candidates, maxTime, maxSteps)
				return map[string]interface{}{"total_found": len(filtered), "recipes": filtered}, nil
			},
		},
	)
}

// decodeRecipeList accepts either a bare JSON array or a {recipes: [...]}
// wrapper, matching what the model echoes back from earlier tool results.
// An empty input falls back to the whole corpus.
func decodeRecipeList(raw string, corpus RecipeSearch) ([]recipes.Recipe, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return corpus.All(), nil
	}
	var list []recipes.Recipe
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return list, nil
	}
	var wrapper struct {
		Recipes []recipes.Recipe `json:"recipes"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapper); err != nil {
		return nil, fmt.Errorf("filter_recipes_by_constraints: invalid recipes_json: %w", err)
	}
	return wrapper.Recipes, nil
}

// parseConstraints reads "max_time:30,max_steps:5" style strings. Unknown
// keys are ignored.
func parseConstraints(raw string) (maxTime, maxSteps int, err error) {
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" || !strings.Contains(part, ":") {
			continue
		}
		kv := strings.SplitN(part, ":", 2)
		key := strings.TrimSpace(kv[0])
		value := strings.TrimSpace(kv[1])
		n, convErr := strconv.Atoi(value)
		if convErr != nil {
			return 0, 0, fmt.Errorf("filter_recipes_by_constraints: bad value for %s: %q", key, value)
		}
		switch key {
		case "max_time":
			maxTime = n
		case "max_steps":
			maxSteps = n
		}
	}
	return maxTime, maxSteps, nil
}

// splitList breaks a comma-separated list, accepting the fullwidth comma
// the model sometimes produces.
func splitList(raw string) []string {
	raw = strings.ReplaceAll(raw, "，", ",")
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func stringArg(args map[string]interface{}, key, fallback string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return fallback
}

func intArg(args map[string]interface{}, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
