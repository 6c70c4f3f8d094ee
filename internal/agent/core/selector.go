package core

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/menufest/menufest/config"
	"github.com/menufest/menufest/internal/agent/telemetry"
	"github.com/menufest/menufest/internal/extract"
	"github.com/menufest/menufest/internal/schema"
)

// SelectorAgent turns fridge inventory into per-day dish groupings via a
// bounded tool loop.
type SelectorAgent struct {
	agents    config.AgentsConfig
	provider  LLMProvider
	inventory InventoryLookup
	telemetry *telemetry.Telemetry
	model     string
	logger    *log.Logger
}

// NewSelectorAgent wires the selector stage.
func NewSelectorAgent(cfg *config.Config, provider LLMProvider, inventory InventoryLookup, tel *telemetry.Telemetry) *SelectorAgent {
	model := cfg.LLM.Routing.Selector
	if model == "" {
		model = cfg.LLM.Routing.Fallback
	}
	return &SelectorAgent{
		agents:    cfg.Agents,
		provider:  provider,
		inventory: inventory,
		telemetry: tel,
		model:     model,
		logger:    log.New(log.Writer(), "[SELECTOR] ", log.LstdFlags),
	}
}

// Run executes the selector conversation. Unparsable final output and an
// exhausted step ceiling both yield the empty sentinel, not an error;
// only transport failures surface as errors.
func (a *SelectorAgent) Run(ctx context.Context, req SelectorRequest) (schema.SelectorResult, StageStats, error) {
	if len(req.Meals) == 0 {
		req.Meals = a.agents.DefaultMeals
	}
	if req.StartDate == "" {
		req.StartDate = time.Now().Format("2006-01-02")
	}
	if a.agents.StageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.agents.StageTimeout)
		defer cancel()
	}

	tools := SelectorToolset(a.inventory, req.UserID, a.agents.InventoryPageSz)
	messages := []Message{
		{Role: RoleSystem, Content: selectorSystemPrompt},
		{Role: RoleUser, Content: selectorUserPrompt(req)},
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
			return schema.SelectorResult{}, stats, err
		}
		stats.PromptTokens += resp.PromptTokens
		stats.CompletionTokens += resp.CompletionTokens

		if len(resp.ToolCalls) == 0 {
			result := a.parse(resp.Content)
			a.recordStage(ctx, stats, start, true, "")
			return result, stats, nil
		}

		stats.ToolSteps++
		messages = append(messages, Message{Role: RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls})
		for _, call := range resp.ToolCalls {
			t0 := time.Now()
			content := tools.Dispatch(ctx, call)
			a.telemetry.RecordToolEvent(ctx, telemetry.ToolEvent{
				Stage:    StageSelector,
				Tool:     call.Name,
				Duration: time.Since(t0),
				Success:  !isErrorPayload(content),
			})
			messages = append(messages, Message{Role: RoleTool, Content: content, ToolCallID: call.ID})
		}
	}

	a.logger.Printf("tool step ceiling reached after %d steps, returning empty selection", maxSteps)
	a.recordStage(ctx, stats, start, false, "tool step ceiling reached")
	return schema.EmptySelectorResult(), stats, nil
}

// parse recovers a SelectorResult from the final model message, falling
// back to the empty sentinel when nothing usable comes out.
func (a *SelectorAgent) parse(content string) schema.SelectorResult {
	doc, err := extract.Extract(content)
	if err != nil {
		a.logger.Printf("no JSON in final message: %v", err)
		return schema.EmptySelectorResult()
	}
	result, err := schema.DecodeSelectorResult(doc)
	if err != nil {
		a.logger.Printf("selection rejected: %v", err)
		return schema.EmptySelectorResult()
	}
	return result
}

func (a *SelectorAgent) recordStage(ctx context.Context, stats StageStats, start time.Time, success bool, errMsg string) {
	a.telemetry.RecordStageEvent(ctx, telemetry.StageEvent{
		Stage:      StageSelector,
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

// isErrorPayload reports whether a tool result is the error envelope
// Dispatch produces.
func isErrorPayload(content string) bool {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return false
	}
	return payload.Error != ""
}
