package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// StepMetrics is an aggregated view of executed steps for one agent.
type StepMetrics struct {
	Agent         string  `json:"agent"`
	TotalSteps    int64   `json:"total_steps"`
	FailedSteps   int64   `json:"failed_steps"`
	TotalDuration float64 `json:"total_duration_seconds"`
}

// QueryService aggregates recorded step metrics from a Prometheus server.
type QueryService struct {
	client   api.Client
	queryAPI v1.API
}

// NewQueryService creates a query service for the given Prometheus URL.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{
		Address: prometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}
	return &QueryService{
		client:   client,
		queryAPI: v1.NewAPI(client),
	}, nil
}

// GetAgentMetrics retrieves step totals and cumulative duration for one agent.
func (q *QueryService) GetAgentMetrics(ctx context.Context, agent string) (*StepMetrics, error) {
	metrics := &StepMetrics{Agent: agent}

	totalQuery := fmt.Sprintf(`sum(assistant_steps_total{agent=%q})`, agent)
	totalResult, _, err := q.queryAPI.Query(ctx, totalQuery, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query step totals: %w", err)
	}
	if vector, ok := totalResult.(model.Vector); ok && len(vector) > 0 {
		metrics.TotalSteps = int64(vector[0].Value)
	}

	failedQuery := fmt.Sprintf(`sum(assistant_steps_total{agent=%q, status="error"})`, agent)
	failedResult, _, err := q.queryAPI.Query(ctx, failedQuery, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query failed steps: %w", err)
	}
	if vector, ok := failedResult.(model.Vector); ok && len(vector) > 0 {
		metrics.FailedSteps = int64(vector[0].Value)
	}

	durationQuery := fmt.Sprintf(`sum(assistant_step_duration_seconds_sum{agent=%q})`, agent)
	durationResult, _, err := q.queryAPI.Query(ctx, durationQuery, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query step durations: %w", err)
	}
	if vector, ok := durationResult.(model.Vector); ok && len(vector) > 0 {
		metrics.TotalDuration = float64(vector[0].Value)
	}

	return metrics, nil
}

// GetAllAgentMetrics retrieves per-agent metrics for every agent that has
// recorded at least one step.
func (q *QueryService) GetAllAgentMetrics(ctx context.Context) (map[string]*StepMetrics, error) {
	agentsQuery := `group by (agent) (assistant_steps_total)`
	agentsResult, _, err := q.queryAPI.Query(ctx, agentsQuery, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query agents: %w", err)
	}

	var agents []string
	if vector, ok := agentsResult.(model.Vector); ok {
		for _, sample := range vector {
			if name, ok := sample.Metric["agent"]; ok {
				agents = append(agents, string(name))
			}
		}
	}

	result := make(map[string]*StepMetrics, len(agents))
	for _, agent := range agents {
		metrics, err := q.GetAgentMetrics(ctx, agent)
		if err != nil {
			return nil, err
		}
		result[agent] = metrics
	}
	return result, nil
}
