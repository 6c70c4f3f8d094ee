package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/menufest/menufest/config"
	"github.com/menufest/menufest/internal/agent/telemetry"
	"github.com/menufest/menufest/internal/extract"
	"github.com/menufest/menufest/internal/schema"
)

// PlannerAgent expands ingredient groups into a full recipe schedule via
// a bounded tool loop over the recipe corpus.
type PlannerAgent struct {
	agents    config.AgentsConfig
	provider  LLMProvider
	corpus    RecipeSearch
	telemetry *telemetry.Telemetry
	model     string
	logger    *log.Logger
}

// NewPlannerAgent wires the planner stage.
func NewPlannerAgent(cfg *config.Config, provider LLMProvider, corpus RecipeSearch, tel *telemetry.Telemetry) *PlannerAgent {
	model := cfg.LLM.Routing.Planner
	if model == "" {
		model = cfg.LLM.Routing.Fallback
	}
	return &PlannerAgent{
		agents:    cfg.Agents,
		provider:  provider,
		corpus:    corpus,
		telemetry: tel,
		model:     model,
		logger:    log.New(log.Writer(), "[PLANNER] ", log.LstdFlags),
	}
}

// Run executes the planner conversation. The returned envelope always
// reflects what happened: parse failures and the step ceiling produce a
// failure envelope with the raw output preserved, while transport
// failures surface as errors.
func (a *PlannerAgent) Run(ctx context.Context, req PlannerRequest) (schema.PlannerResponse, StageStats, error) {
	a.applyDefaults(&req)
	if a.agents.StageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.agents.StageTimeout)
		defer cancel()
	}

	tools := PlannerToolset(a.corpus)
	messages := []Message{
		{Role: RoleSystem, Content: plannerSystemPrompt},
		{Role: RoleUser, Content: plannerUserPrompt(req)},
	}

	maxSteps := a.agents.MaxToolSteps
	if maxSteps <= 0 {
		maxSteps = 25
	}

	stats := StageStats{Model: a.model}
	start := time.Now()
	defer func() {
		stats.Duration = time.Since(start)
		stats.Cost = a.provider.CalculateCost(stats.PromptTokens, stats.CompletionTokens, a.model)
	}()

	for step := 0; step < maxSteps; step++ {
		resp, err := a.provider.ChatWithTools(ctx, a.model, messages, tools.Specs())
		if err != nil {
			a.recordStage(ctx, stats, start, false, err.Error())
			return schema.EmptyPlannerResponse(err.Error(), ""), stats, err
		}
		stats.PromptTokens += resp.PromptTokens
		stats.CompletionTokens += resp.CompletionTokens

		if len(resp.ToolCalls) == 0 {
			envelope := a.parse(resp.Content)
			a.recordStage(ctx, stats, start, envelope.Success, envelope.Error)
			return envelope, stats, nil
		}

		stats.ToolSteps++
		messages = append(messages, Message{Role: RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls})
		for _, call := range resp.ToolCalls {
			t0 := time.Now()
			content := tools.Dispatch(ctx, call)
			a.telemetry.RecordToolEvent(ctx, telemetry.ToolEvent{
				Stage:    StagePlanner,
				Tool:     call.Name,
				Duration: time.Since(t0),
				Success:  !isErrorPayload(content),
			})
			messages = append(messages, Message{Role: RoleTool, Content: content, ToolCallID: call.ID})
		}
	}

	a.logger.Printf("tool step ceiling reached after %d steps, no menu produced", maxSteps)
	a.recordStage(ctx, stats, start, false, "tool step ceiling reached")
	return schema.EmptyPlannerResponse("達到工具呼叫上限，未產生菜單", ""), stats, nil
}

func (a *PlannerAgent) applyDefaults(req *PlannerRequest) {
	if len(req.Meals) == 0 {
		req.Meals = a.agents.DefaultMeals
	}
	if len(req.Preferences) == 0 {
		req.Preferences = a.agents.DefaultTags
	}
	if req.MaxCookingTime <= 0 {
		req.MaxCookingTime = a.agents.MaxCookingTime
	}
	if req.MaxSteps <= 0 {
		req.MaxSteps = a.agents.MaxRecipeSteps
	}
	if req.StartDate == "" {
		req.StartDate = time.Now().Format("2006-01-02")
	}
}

// parse recovers a MenuPlan from the final model message. Failures keep
// the raw output in the envelope so the run stays traceable.
func (a *PlannerAgent) parse(content string) schema.PlannerResponse {
	doc, err := extract.Extract(content)
	if err != nil {
		a.logger.Printf("no JSON in final message: %v", err)
		return schema.EmptyPlannerResponse(fmt.Sprintf("模型輸出無法解析: %v", err), content)
	}
	plan, err := schema.DecodeMenuPlan(doc)
	if err != nil {
		a.logger.Printf("menu plan rejected: %v", err)
		return schema.EmptyPlannerResponse(fmt.Sprintf("菜單格式驗證失敗: %v", err), content)
	}
	return schema.PlannerResponse{
		Success:  true,
		MenuPlan: &plan,
		Message:  "菜單規劃完成",
	}
}

func (a *PlannerAgent) recordStage(ctx context.Context, stats StageStats, start time.Time, success bool, errMsg string) {
	a.telemetry.RecordStageEvent(ctx, telemetry.StageEvent{
		Stage:      StagePlanner,
		StartTime:  start,
		EndTime:    time.Now(),
		Duration:   time.Since(start),
		Success:    success,
		Error:      errMsg,
		Cost:       a.provider.CalculateCost(stats.PromptTokens, stats.CompletionTokens, a.model),
		TokensUsed: stats.TokensUsed(),
		ModelUsed:  a.model,
		ToolSteps:  stats.ToolSteps,
	})
}
