package core

import (
	"context"
	"testing"

	"github.com/menufest/menufest/config"
	"github.com/menufest/menufest/internal/agent/telemetry"
	"github.com/menufest/menufest/internal/schema"
	"github.com/menufest/menufest/internal/store"
)

// scriptedProvider replays a fixed sequence of model responses.
type scriptedProvider struct {
	responses []ChatResponse
	err       error
	calls     int
	lastMsgs  []Message
}

func (p *scriptedProvider) ChatWithTools(ctx context.Context, model string, messages []Message, tools []ToolSpec) (ChatResponse, error) {
	p.lastMsgs = messages
	if p.err != nil {
		return ChatResponse{}, p.err
	}
	if p.calls >= len(p.responses) {
		// keep requesting tools so ceiling tests can run unbounded
		return ChatResponse{ToolCalls: []ToolCall{{ID: "loop", Name: "search_fridge", Arguments: "{}"}}}, nil
	}
	resp := p.responses[p.calls]
	p.calls++
	return resp, nil
}

func (p *scriptedProvider) CalculateCost(inputTokens, outputTokens int64, model string) float64 {
	return float64(inputTokens+outputTokens) / 1000.0 * 0.01
}

func testConfig() *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{
			Routing: config.LLMRoutingConfig{Selector: "fast", Planner: "smart", Fallback: "fast"},
		},
		Agents: config.AgentsConfig{
			MaxToolSteps:    5,
			MaxCookingTime:  30,
			MaxRecipeSteps:  5,
			DefaultMeals:    []string{"早餐", "午餐", "晚餐"},
			DefaultTags:     []string{"家常菜"},
			InventoryPageSz: 25,
		},
	}
}

const selectorFinalJSON = `{
  "total_days": 1,
  "total_people": 2,
  "start_date": "2025-01-10",
  "daily_meals": [
    {
      "date": "2025-01-10",
      "breakfast": [
        {"dish_name": "番茄炒蛋", "ingredients": [
          {"name": "雞蛋", "allocated_quantity": 3},
          {"name": "番茄", "allocated_quantity": 2}
        ]}
      ],
      "lunch": [
        {"dish_name": "蒸蛋", "ingredients": [
          {"name": "雞蛋", "allocated_quantity": 2}
        ]}
      ],
      "dinner": []
    }
  ]
}`

const plannerFinalJSON = `{
  "menu_plan": {"start_date": "2025-01-10", "days": 1, "people": 2, "daytimes": ["早餐", "午餐", "晚餐"]},
  "schedule": [
    {
      "date": "2025-01-10",
      "breakfast": [
        {"recipe_name": "番茄炒蛋", "main_ingredient": "雞蛋",
         "ingredients": [{"name": "雞蛋", "amount": "3顆"}, {"name": "番茄", "amount": "2顆"}],
         "steps": ["打蛋", "切番茄", "下鍋炒"]}
      ],
      "lunch": [],
      "dinner": []
    }
  ]
}`

func newTelemetry() *telemetry.Telemetry {
	return telemetry.NewTelemetry(config.TelemetryConfig{})
}

func TestSelectorAgentToolLoop(t *testing.T) {
	inv := &fakeInventory{page: store.InventoryPage{
		Items: []schema.InventoryItem{{IngredientID: "i1", Name: "雞蛋", Unit: schema.UnitPiece, QuantityAvailable: 6}},
		Total: 1, Page: 1, Pages: 1,
	}}
	provider := &scriptedProvider{responses: []ChatResponse{
		{ToolCalls: []ToolCall{{ID: "c1", Name: "search_fridge", Arguments: "{}"}}, PromptTokens: 100, CompletionTokens: 20},
		{Content: selectorFinalJSON, PromptTokens: 200, CompletionTokens: 80},
	}}

	agent := NewSelectorAgent(testConfig(), provider, inv, newTelemetry())
	result, stats, err := agent.Run(context.Background(), SelectorRequest{UserID: "u1", People: 2, Days: 1})
	if err != nil {
		t.Fatalf("selector run failed: %v", err)
	}
	if result.IsEmpty() {
		t.Fatal("expected a non-empty selection")
	}
	if result.TotalDays != 1 || len(result.DailyMeals[0].Breakfast) != 1 {
		t.Fatalf("unexpected selection: %+v", result)
	}
	if stats.ToolSteps != 1 {
		t.Fatalf("expected 1 tool step, got %d", stats.ToolSteps)
	}
	if stats.TokensUsed() != 400 {
		t.Fatalf("expected 400 tokens, got %d", stats.TokensUsed())
	}
	if inv.gotUserID != "u1" {
		t.Fatalf("inventory queried for wrong user %q", inv.gotUserID)
	}

	// the tool result must have been fed back into the conversation
	last := provider.lastMsgs[len(provider.lastMsgs)-1]
	if last.Role != RoleTool || last.ToolCallID != "c1" {
		t.Fatalf("tool result not appended: %+v", last)
	}
}

func TestSelectorAgentStepCeiling(t *testing.T) {
	provider := &scriptedProvider{} // always requests another tool call
	agent := NewSelectorAgent(testConfig(), provider, &fakeInventory{}, newTelemetry())

	result, stats, err := agent.Run(context.Background(), SelectorRequest{UserID: "u1", People: 2, Days: 1})
	if err != nil {
		t.Fatalf("ceiling must not be an error: %v", err)
	}
	if !result.IsEmpty() {
		t.Fatalf("expected empty sentinel, got %+v", result)
	}
	if stats.ToolSteps != 5 {
		t.Fatalf("expected 5 tool steps, got %d", stats.ToolSteps)
	}
}

func TestSelectorAgentUnparsableOutput(t *testing.T) {
	provider := &scriptedProvider{responses: []ChatResponse{
		{Content: "抱歉，我沒有輸出 JSON。"},
	}}
	agent := NewSelectorAgent(testConfig(), provider, &fakeInventory{}, newTelemetry())

	result, _, err := agent.Run(context.Background(), SelectorRequest{UserID: "u1", People: 2, Days: 1})
	if err != nil {
		t.Fatalf("parse failure must not be an error: %v", err)
	}
	if !result.IsEmpty() {
		t.Fatalf("expected empty sentinel, got %+v", result)
	}
}

func TestPlannerAgentSuccess(t *testing.T) {
	provider := &scriptedProvider{responses: []ChatResponse{
		{ToolCalls: []ToolCall{{ID: "t1", Name: "search_recipe_by_ingredient", Arguments: `{"ingredients": "雞蛋"}`}}},
		{Content: "最終菜單如下：\n```json\n" + plannerFinalJSON + "\n```"},
	}}
	agent := NewPlannerAgent(testConfig(), provider, testRecipeCorpus(t), newTelemetry())

	envelope, stats, err := agent.Run(context.Background(), PlannerRequest{
		IngredientGroups: []schema.IngredientGroup{{MainIngredient: "雞蛋", TotalAmount: "2人份", Day: 1, Meal: "早餐", DishName: "番茄炒蛋"}},
		People:           2,
		Days:             1,
	})
	if err != nil {
		t.Fatalf("planner run failed: %v", err)
	}
	if !envelope.Success || envelope.MenuPlan == nil {
		t.Fatalf("expected successful envelope, got %+v", envelope)
	}
	if envelope.MenuPlan.MenuPlan.People != 2 || len(envelope.MenuPlan.Schedule) != 1 {
		t.Fatalf("unexpected plan: %+v", envelope.MenuPlan)
	}
	if stats.ToolSteps != 1 {
		t.Fatalf("expected 1 tool step, got %d", stats.ToolSteps)
	}
}

func TestPlannerAgentUnparsableOutput(t *testing.T) {
	provider := &scriptedProvider{responses: []ChatResponse{
		{Content: "這不是 JSON"},
	}}
	agent := NewPlannerAgent(testConfig(), provider, testRecipeCorpus(t), newTelemetry())

	envelope, _, err := agent.Run(context.Background(), PlannerRequest{People: 2, Days: 1})
	if err != nil {
		t.Fatalf("parse failure must not be an error: %v", err)
	}
	if envelope.Success {
		t.Fatal("expected failure envelope")
	}
	if envelope.RawResponse != "這不是 JSON" {
		t.Fatalf("raw output not preserved: %+v", envelope)
	}
}

func TestPlannerAgentDefaults(t *testing.T) {
	agent := NewPlannerAgent(testConfig(), &scriptedProvider{responses: []ChatResponse{{Content: plannerFinalJSON}}}, testRecipeCorpus(t), newTelemetry())

	req := PlannerRequest{People: 2, Days: 1}
	agent.applyDefaults(&req)
	if req.MaxCookingTime != 30 || req.MaxSteps != 5 {
		t.Fatalf("constraint defaults not applied: %+v", req)
	}
	if len(req.Preferences) != 1 || req.Preferences[0] != "家常菜" {
		t.Fatalf("preference default not applied: %+v", req.Preferences)
	}
	if len(req.Meals) != 3 {
		t.Fatalf("meal default not applied: %+v", req.Meals)
	}
	if req.StartDate == "" {
		t.Fatal("start date default not applied")
	}
}
