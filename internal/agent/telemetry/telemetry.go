package telemetry

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/menufest/menufest/config"
)

// Telemetry tracks stage executions, tool usage and LLM spend.
type Telemetry struct {
	config      config.TelemetryConfig
	logger      *log.Logger
	metrics     *Metrics
	costTracker *CostTracker
	mu          sync.RWMutex
}

// Metrics holds aggregate counters for the pipeline.
type Metrics struct {
	TotalRuns      int64
	SuccessfulRuns int64
	FailedRuns     int64
	AverageRunTime time.Duration

	StageExecutions   map[string]int64
	StageSuccessRates map[string]float64
	StageAverageTimes map[string]time.Duration

	LLMRequests   map[string]int64
	LLMTokensUsed map[string]int64

	ToolCalls        map[string]int64
	ToolSuccessRates map[string]float64
}

// CostTracker accumulates LLM spend across models and stages.
type CostTracker struct {
	StageCosts  map[string]float64
	ModelCosts  map[string]float64
	TotalCost   float64
	TotalTokens int64
}

// CostSummary is a read-only snapshot of the cost tracker.
type CostSummary struct {
	TotalCost   float64
	TotalTokens int64
	StageCosts  map[string]float64
	ModelCosts  map[string]float64
}

// RunEvent covers one full pipeline run.
type RunEvent struct {
	RunID      string
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Success    bool
	Error      string
	Cost       float64
	TokensUsed int64
	ModelsUsed []string
}

// StageEvent covers one stage agent execution.
type StageEvent struct {
	RunID      string
	Stage      string // "selector" or "planner"
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Success    bool
	Error      string
	Cost       float64
	TokensUsed int64
	ModelUsed  string
	ToolSteps  int
}

// ToolEvent covers one tool invocation inside a stage loop.
type ToolEvent struct {
	RunID    string
	Stage    string
	Tool     string
	Duration time.Duration
	Success  bool
	Results  int
}

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menufest_pipeline_runs_total",
		Help: "Pipeline runs by outcome.",
	}, []string{"outcome"})
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "menufest_stage_duration_seconds",
		Help:    "Stage execution time.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	}, []string{"stage", "outcome"})
	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menufest_tool_calls_total",
		Help: "Tool invocations inside stage loops.",
	}, []string{"stage", "tool", "outcome"})
	llmTokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menufest_llm_tokens_total",
		Help: "LLM tokens consumed per model.",
	}, []string{"model"})
	llmCostTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menufest_llm_cost_dollars_total",
		Help: "Estimated LLM spend per model.",
	}, []string{"model"})
)

// NewTelemetry creates a telemetry instance.
func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	return &Telemetry{
		config: cfg,
		logger: log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		metrics: &Metrics{
			StageExecutions:   make(map[string]int64),
			StageSuccessRates: make(map[string]float64),
			StageAverageTimes: make(map[string]time.Duration),
			LLMRequests:       make(map[string]int64),
			LLMTokensUsed:     make(map[string]int64),
			ToolCalls:         make(map[string]int64),
			ToolSuccessRates:  make(map[string]float64),
		},
		costTracker: &CostTracker{
			StageCosts: make(map[string]float64),
			ModelCosts: make(map[string]float64),
		},
	}
}

// RecordRunEvent records a completed pipeline run.
func (t *Telemetry) RecordRunEvent(ctx context.Context, event RunEvent) {
	if !t.config.Enabled {
		return
	}

	outcome := "success"
	if !event.Success {
		outcome = "failure"
	}
	runsTotal.WithLabelValues(outcome).Inc()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.TotalRuns++
	if event.Success {
		t.metrics.SuccessfulRuns++
	} else {
		t.metrics.FailedRuns++
	}

	if t.metrics.TotalRuns == 1 {
		t.metrics.AverageRunTime = event.Duration
	} else {
		total := t.metrics.AverageRunTime * time.Duration(t.metrics.TotalRuns-1)
		t.metrics.AverageRunTime = (total + event.Duration) / time.Duration(t.metrics.TotalRuns)
	}

	for _, model := range event.ModelsUsed {
		t.metrics.LLMRequests[model]++
	}

	if t.config.CostTracking {
		t.costTracker.TotalCost += event.Cost
		t.costTracker.TotalTokens += event.TokensUsed
	}

	t.logger.Printf("Run Event: ID=%s, Success=%t, Duration=%v, Cost=$%.4f, Tokens=%d",
		event.RunID, event.Success, event.Duration, event.Cost, event.TokensUsed)
}

// RecordStageEvent records one stage agent execution.
func (t *Telemetry) RecordStageEvent(ctx context.Context, event StageEvent) {
	if !t.config.Enabled {
		return
	}

	outcome := "success"
	if !event.Success {
		outcome = "failure"
	}
	stageDuration.WithLabelValues(event.Stage, outcome).Observe(event.Duration.Seconds())
	if event.ModelUsed != "" {
		llmTokensTotal.WithLabelValues(event.ModelUsed).Add(float64(event.TokensUsed))
		llmCostTotal.WithLabelValues(event.ModelUsed).Add(event.Cost)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.StageExecutions[event.Stage]++
	executions := t.metrics.StageExecutions[event.Stage]

	success := t.metrics.StageSuccessRates[event.Stage] * float64(executions-1)
	if event.Success {
		success += 1.0
	}
	t.metrics.StageSuccessRates[event.Stage] = success / float64(executions)

	if executions == 1 {
		t.metrics.StageAverageTimes[event.Stage] = event.Duration
	} else {
		total := t.metrics.StageAverageTimes[event.Stage] * time.Duration(executions-1)
		t.metrics.StageAverageTimes[event.Stage] = (total + event.Duration) / time.Duration(executions)
	}

	t.metrics.LLMRequests[event.ModelUsed]++
	t.metrics.LLMTokensUsed[event.ModelUsed] += event.TokensUsed

	if t.config.CostTracking {
		t.costTracker.TotalCost += event.Cost
		t.costTracker.TotalTokens += event.TokensUsed
		t.costTracker.StageCosts[event.Stage] += event.Cost
		t.costTracker.ModelCosts[event.ModelUsed] += event.Cost
	}

	t.logger.Printf("Stage Event: Stage=%s, Success=%t, Duration=%v, ToolSteps=%d, Tokens=%d",
		event.Stage, event.Success, event.Duration, event.ToolSteps, event.TokensUsed)
}

// RecordToolEvent records one tool invocation.
func (t *Telemetry) RecordToolEvent(ctx context.Context, event ToolEvent) {
	if !t.config.Enabled {
		return
	}

	outcome := "success"
	if !event.Success {
		outcome = "failure"
	}
	toolCallsTotal.WithLabelValues(event.Stage, event.Tool, outcome).Inc()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.ToolCalls[event.Tool]++
	calls := t.metrics.ToolCalls[event.Tool]
	success := t.metrics.ToolSuccessRates[event.Tool] * float64(calls-1)
	if event.Success {
		success += 1.0
	}
	t.metrics.ToolSuccessRates[event.Tool] = success / float64(calls)
}

// GetMetrics returns a copy of the current metrics.
func (t *Telemetry) GetMetrics() Metrics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	metrics := *t.metrics
	metrics.StageExecutions = copyInt64Map(t.metrics.StageExecutions)
	metrics.StageSuccessRates = copyFloatMap(t.metrics.StageSuccessRates)
	metrics.StageAverageTimes = copyDurationMap(t.metrics.StageAverageTimes)
	metrics.LLMRequests = copyInt64Map(t.metrics.LLMRequests)
	metrics.LLMTokensUsed = copyInt64Map(t.metrics.LLMTokensUsed)
	metrics.ToolCalls = copyInt64Map(t.metrics.ToolCalls)
	metrics.ToolSuccessRates = copyFloatMap(t.metrics.ToolSuccessRates)
	return metrics
}

// GetCostSummary returns a copy of the current cost tracker.
func (t *Telemetry) GetCostSummary() CostSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return CostSummary{
		TotalCost:   t.costTracker.TotalCost,
		TotalTokens: t.costTracker.TotalTokens,
		StageCosts:  copyFloatMap(t.costTracker.StageCosts),
		ModelCosts:  copyFloatMap(t.costTracker.ModelCosts),
	}
}

func copyInt64Map(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyFloatMap(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyDurationMap(in map[string]time.Duration) map[string]time.Duration {
	out := make(map[string]time.Duration, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
