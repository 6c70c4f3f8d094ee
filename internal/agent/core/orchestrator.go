package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/menufest/menufest/config"
	"github.com/menufest/menufest/internal/agent/telemetry"
	"github.com/menufest/menufest/internal/artifact"
	"github.com/menufest/menufest/internal/store"
)

// Orchestrator drives one pipeline run through its states:
// init -> select -> convert -> plan -> done, with failed on errors.
type Orchestrator struct {
	cfg       *config.Config
	selector  *SelectorAgent
	planner   *PlannerAgent
	artifacts *artifact.Store
	runs      store.RunStatusStore
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewOrchestrator wires the full pipeline.
func NewOrchestrator(cfg *config.Config, provider LLMProvider, inventory InventoryLookup, corpus RecipeSearch, artifacts *artifact.Store, runs store.RunStatusStore, tel *telemetry.Telemetry) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		selector:  NewSelectorAgent(cfg, provider, inventory, tel),
		planner:   NewPlannerAgent(cfg, provider, corpus, tel),
		artifacts: artifacts,
		runs:      runs,
		telemetry: tel,
		logger:    log.New(log.Writer(), "[ORCHESTRATOR] ", log.LstdFlags),
	}
}

// Run executes the full pipeline for one request.
func (o *Orchestrator) Run(ctx context.Context, req PipelineRequest) (PipelineResult, error) {
	if err := validateRequest(req); err != nil {
		return PipelineResult{}, err
	}

	run := newRunState(req.UserID)
	result := PipelineResult{RunID: run.RunID, State: store.RunStateInit}
	o.saveRun(ctx, run)
	o.logger.Printf("run %s: %d people, %d days for user %s", run.RunID, req.People, req.Days, req.UserID)

	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	// select
	o.transition(ctx, run, &result, store.RunStateSelect)
	selection, selStats, err := o.selector.Run(ctx, SelectorRequest{
		UserID:      req.UserID,
		People:      req.People,
		Days:        req.Days,
		Meals:       req.Meals,
		Constraints: req.Constraints,
		StartDate:   req.StartDate,
	})
	o.addStats(&result, selStats)
	if err != nil {
		return o.fail(ctx, run, result, start, fmt.Errorf("selector stage: %w", err))
	}
	result.SelectorOutput = selection

	selectorFile, err := o.artifacts.SaveSelector(selection)
	if err != nil {
		return o.fail(ctx, run, result, start, fmt.Errorf("persist selector output: %w", err))
	}
	result.SelectorFile = selectorFile
	run.SelectorFile = selectorFile

	if selection.IsEmpty() {
		result.State = store.RunStateFailed
		result.Error = "冰箱沒有足夠的可用食材"
		run.State = store.RunStateFailed
		run.Error = result.Error
		o.saveRun(ctx, run)
		o.recordRun(ctx, run.RunID, result, start, false)
		o.logger.Printf("run %s: empty selection, planning skipped", run.RunID)
		return result, nil
	}

	// convert
	o.transition(ctx, run, &result, store.RunStateConvert)
	groups := ConvertToGroups(selection)
	result.IngredientGroups = groups
	o.logger.Printf("run %s: converted %d ingredient groups", run.RunID, len(groups))

	// plan
	o.transition(ctx, run, &result, store.RunStatePlan)
	envelope, planStats, planErr := o.planner.Run(ctx, PlannerRequest{
		IngredientGroups: groups,
		People:           req.People,
		Days:             req.Days,
		Meals:            req.Meals,
		MaxCookingTime:   req.MaxCookingTime,
		MaxSteps:         req.MaxSteps,
		Preferences:      req.Preferences,
		StartDate:        req.StartDate,
	})
	o.addStats(&result, planStats)
	result.PlannerOutput = &envelope

	// the planner envelope is persisted even when planning failed
	plannerFile, saveErr := o.artifacts.SavePlanner(envelope)
	if saveErr != nil {
		return o.fail(ctx, run, result, start, fmt.Errorf("persist planner output: %w", saveErr))
	}
	result.PlannerFile = plannerFile
	run.PlannerFile = plannerFile

	if planErr != nil {
		return o.fail(ctx, run, result, start, fmt.Errorf("planner stage: %w", planErr))
	}

	result.State = store.RunStateDone
	result.Success = envelope.Success
	result.Error = envelope.Error
	run.State = store.RunStateDone
	run.Error = envelope.Error
	o.saveRun(ctx, run)
	o.recordRun(ctx, run.RunID, result, start, envelope.Success)
	return result, nil
}

// RunFromSelectorFile replays the planner half of the pipeline from a
// persisted selector artifact, skipping the selection stage.
func (o *Orchestrator) RunFromSelectorFile(ctx context.Context, selectorFile string, req PipelineRequest) (PipelineResult, error) {
	if err := validateRequest(req); err != nil {
		return PipelineResult{}, err
	}

	run := newRunState(req.UserID)
	result := PipelineResult{RunID: run.RunID, State: store.RunStateInit}
	o.saveRun(ctx, run)
	o.logger.Printf("run %s: replay from %s", run.RunID, selectorFile)

	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	selection, err := o.artifacts.LoadSelector(selectorFile)
	if err != nil {
		return o.fail(ctx, run, result, start, err)
	}
	result.SelectorOutput = selection
	result.SelectorFile = selectorFile
	run.SelectorFile = selectorFile

	if selection.IsEmpty() {
		result.State = store.RunStateFailed
		result.Error = "選擇輸出沒有任何菜色"
		run.State = store.RunStateFailed
		run.Error = result.Error
		o.saveRun(ctx, run)
		o.recordRun(ctx, run.RunID, result, start, false)
		return result, nil
	}

	o.transition(ctx, run, &result, store.RunStateConvert)
	groups := ConvertToGroups(selection)
	result.IngredientGroups = groups

	o.transition(ctx, run, &result, store.RunStatePlan)
	envelope, planStats, planErr := o.planner.Run(ctx, PlannerRequest{
		IngredientGroups: groups,
		People:           req.People,
		Days:             req.Days,
		Meals:            req.Meals,
		MaxCookingTime:   req.MaxCookingTime,
		MaxSteps:         req.MaxSteps,
		Preferences:      req.Preferences,
		StartDate:        req.StartDate,
	})
	o.addStats(&result, planStats)
	result.PlannerOutput = &envelope

	plannerFile, saveErr := o.artifacts.SavePlanner(envelope)
	if saveErr != nil {
		return o.fail(ctx, run, result, start, fmt.Errorf("persist planner output: %w", saveErr))
	}
	result.PlannerFile = plannerFile
	run.PlannerFile = plannerFile

	if planErr != nil {
		return o.fail(ctx, run, result, start, fmt.Errorf("planner stage: %w", planErr))
	}

	result.State = store.RunStateDone
	result.Success = envelope.Success
	result.Error = envelope.Error
	run.State = store.RunStateDone
	run.Error = envelope.Error
	o.saveRun(ctx, run)
	o.recordRun(ctx, run.RunID, result, start, envelope.Success)
	return result, nil
}

// RunStatus looks up the persisted status of a run.
func (o *Orchestrator) RunStatus(ctx context.Context, runID string) (store.RunStatus, bool, error) {
	return o.runs.GetRun(ctx, runID)
}

func validateRequest(req PipelineRequest) error {
	if req.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if req.People <= 0 {
		return fmt.Errorf("people must be positive")
	}
	if req.Days <= 0 {
		return fmt.Errorf("days must be positive")
	}
	return nil
}

func newRunState(userID string) *store.RunStatus {
	now := time.Now()
	return &store.RunStatus{
		RunID:     uuid.NewString(),
		UserID:    userID,
		State:     store.RunStateInit,
		StartedAt: now,
		UpdatedAt: now,
	}
}

func (o *Orchestrator) transition(ctx context.Context, run *store.RunStatus, result *PipelineResult, state string) {
	run.State = state
	result.State = state
	o.saveRun(ctx, run)
}

func (o *Orchestrator) fail(ctx context.Context, run *store.RunStatus, result PipelineResult, start time.Time, err error) (PipelineResult, error) {
	o.logger.Printf("run %s failed: %v", run.RunID, err)
	result.State = store.RunStateFailed
	result.Error = err.Error()
	run.State = store.RunStateFailed
	run.Error = err.Error()
	o.saveRun(ctx, run)
	o.recordRun(ctx, run.RunID, result, start, false)
	return result, err
}

func (o *Orchestrator) saveRun(ctx context.Context, run *store.RunStatus) {
	run.UpdatedAt = time.Now()
	if err := o.runs.SaveRun(ctx, *run); err != nil {
		o.logger.Printf("save run %s status: %v", run.RunID, err)
	}
}

func (o *Orchestrator) addStats(result *PipelineResult, stats StageStats) {
	result.Cost += stats.Cost
	result.TokensUsed += stats.TokensUsed()
}

func (o *Orchestrator) recordRun(ctx context.Context, runID string, result PipelineResult, start time.Time, success bool) {
	o.telemetry.RecordRunEvent(ctx, telemetry.RunEvent{
		RunID:      runID,
		StartTime:  start,
		EndTime:    time.Now(),
		Duration:   time.Since(start),
		Success:    success,
		Error:      result.Error,
		Cost:       result.Cost,
		TokensUsed: result.TokensUsed,
	})
}
