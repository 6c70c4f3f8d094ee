// Package core contains the two stage agents, their tool loops and the
// pipeline orchestrator that chains them.
package core

import (
	"context"
	"time"

	"github.com/menufest/menufest/internal/recipes"
	"github.com/menufest/menufest/internal/schema"
	"github.com/menufest/menufest/internal/store"
)

// Chat roles as used on the wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Pipeline stage names.
const (
	StageSelector = "selector"
	StagePlanner  = "planner"
)

// Message is one turn in a stage conversation.
type Message struct {
	Role       string
	Content    string
	ToolCallID string     // set on tool result messages
	ToolCalls  []ToolCall // set on assistant messages that request tools
}

// ToolCall is a model-requested tool invocation.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON object
}

// ToolSpec describes one callable tool to the model.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]interface{} // JSON schema for the arguments
}

// ChatResponse is one model exchange: either content or tool calls.
type ChatResponse struct {
	Content          string
	ToolCalls        []ToolCall
	PromptTokens     int64
	CompletionTokens int64
}

// LLMProvider is the interface for chat models with tool support.
type LLMProvider interface {
	// ChatWithTools performs a single exchange. An empty tools slice
	// forces a plain completion.
	ChatWithTools(ctx context.Context, model string, messages []Message, tools []ToolSpec) (ChatResponse, error)

	// CalculateCost estimates spend for a token count on a model.
	CalculateCost(inputTokens, outputTokens int64, model string) float64
}

// InventoryLookup is the fridge access the selector tools need.
// *store.Store satisfies it.
type InventoryLookup interface {
	SearchFridge(ctx context.Context, userID, nameContains string, limit, offset int) (store.InventoryPage, error)
}

// RecipeSearch is the corpus access the planner tools need.
// *recipes.Corpus satisfies it.
type RecipeSearch interface {
	SearchByIngredient(ingredient string, limit int) ([]recipes.Recipe, error)
	SearchByTags(tags []string) []recipes.Recipe
	All() []recipes.Recipe
}

// SelectorConstraints narrows what the selector may pick.
type SelectorConstraints struct {
	Allergies          []string `json:"allergies"`
	ExcludeIngredients []string `json:"exclude_ingredients"`
}

// PipelineRequest is the full input of one pipeline run.
type PipelineRequest struct {
	UserID         string              `json:"user_id"`
	People         int                 `json:"people"`
	Days           int                 `json:"days"`
	Meals          []string            `json:"meals,omitempty"`
	Constraints    SelectorConstraints `json:"constraints"`
	Preferences    []string            `json:"preferences,omitempty"`
	MaxCookingTime int                 `json:"max_cooking_time,omitempty"`
	MaxSteps       int                 `json:"max_steps,omitempty"`
	StartDate      string              `json:"start_date,omitempty"` // YYYY-MM-DD, defaults to today
}

// SelectorRequest is the selector stage input.
type SelectorRequest struct {
	UserID      string
	People      int
	Days        int
	Meals       []string
	Constraints SelectorConstraints
	StartDate   string
}

// PlannerRequest is the planner stage input.
type PlannerRequest struct {
	IngredientGroups []schema.IngredientGroup
	People           int
	Days             int
	Meals            []string
	MaxCookingTime   int
	MaxSteps         int
	Preferences      []string
	StartDate        string
}

// StageStats reports what one stage execution consumed.
type StageStats struct {
	Model            string
	ToolSteps        int
	PromptTokens     int64
	CompletionTokens int64
	Cost             float64
	Duration         time.Duration
}

// TokensUsed is the stage's total token count.
func (s StageStats) TokensUsed() int64 { return s.PromptTokens + s.CompletionTokens }

// PipelineResult is the outcome envelope of one run.
type PipelineResult struct {
	RunID            string                    `json:"run_id"`
	State            string                    `json:"state"`
	Success          bool                      `json:"success"`
	Error            string                    `json:"error,omitempty"`
	SelectorOutput   schema.SelectorResult     `json:"selector_output"`
	IngredientGroups []schema.IngredientGroup  `json:"ingredient_groups,omitempty"`
	PlannerOutput    *schema.PlannerResponse   `json:"planner_output,omitempty"`
	SelectorFile     string                    `json:"selector_file,omitempty"`
	PlannerFile      string                    `json:"planner_file,omitempty"`
	Cost             float64                   `json:"cost"`
	TokensUsed       int64                     `json:"tokens_used"`
	Duration         time.Duration             `json:"duration"`
}
