package visibility

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/echolens/echolens/internal/visibility/driver"
)

// Service runs the full multi-provider analysis pipeline.
type Service struct {
	logger *zap.Logger
	retry  RetryPolicy

	// newClients is swappable in tests.
	newClients func(cfg *RunConfig) (*ClientSet, error)
}

// NewService returns a service with the default retry policy.
func NewService(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		logger:     logger,
		retry:      DefaultRetryPolicy(),
		newClients: NewClientSet,
	}
}

// SetRetryPolicy overrides the per-cell retry policy.
func (s *Service) SetRetryPolicy(policy RetryPolicy) {
	s.retry = policy
}

// Run executes every (prompt, provider) cell and returns one PromptResult
// per prompt, in input order, each holding one ProviderResult per selected
// provider, in selection order, even when every call fails.
//
// Prompts are processed sequentially; providers within a prompt run
// concurrently. Only a *ConfigError fails the whole run; every other
// failure degrades to a ProviderResult.Error.
func (s *Service) Run(ctx context.Context, cfg *RunConfig, onProgress ProgressFunc) ([]PromptResult, error) {
	clients, err := s.newClients(cfg)
	if err != nil {
		return nil, err
	}

	policy := s.retry
	if cfg.MaxRetries > 0 {
		policy.MaxRetries = cfg.MaxRetries
	}
	if cfg.RetryBaseDelay > 0 {
		policy.BaseDelay = cfg.RetryBaseDelay
	}

	providers := clients.Order()
	tracker := NewTracker(onProgress)
	tracker.Init(buildTasks(cfg.Prompts, providers))

	s.logger.Info("analysis run starting",
		zap.Int("prompts", len(cfg.Prompts)),
		zap.Int("providers", len(providers)),
	)

	output := make([]PromptResult, 0, len(cfg.Prompts))
	for i, prompt := range cfg.Prompts {
		results := make([]ProviderResult, len(providers))
		var wg sync.WaitGroup

		for slot, provider := range providers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[slot] = s.runCell(ctx, tracker, clients.Adapter(provider), policy, i, prompt, cfg)
			}()
		}
		wg.Wait()

		output = append(output, PromptResult{Prompt: prompt, Results: results})
	}

	s.logger.Info("analysis run finished", zap.Int("prompts", len(output)))
	return output, nil
}

// runCell drives one work unit through its adapter behind the retry
// engine. It always produces a ProviderResult: hard failures after retry
// exhaustion are folded into an error-only result.
func (s *Service) runCell(ctx context.Context, tracker *Tracker, adapter Adapter, policy RetryPolicy, promptIndex int, prompt string, cfg *RunConfig) ProviderResult {
	provider := adapter.Provider()
	id := TaskID(promptIndex, provider)
	tracker.Transition(id, TaskInProgress, "", 0)

	var result *ProviderResult
	err := retryDo(ctx, policy, func(ctx context.Context) error {
		r, err := adapter.Analyze(ctx, prompt, cfg)
		if err != nil {
			return err
		}
		result = r
		return nil
	}, func(err error, attempt int) {
		s.logger.Warn("provider call retrying",
			zap.String("provider", string(provider)),
			zap.Int("prompt", promptIndex),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		tracker.Transition(id, TaskInProgress, err.Error(), attempt)
	})

	if err != nil {
		s.logger.Error("provider call failed",
			zap.String("provider", string(provider)),
			zap.Int("prompt", promptIndex),
			zap.Error(err),
		)
		tracker.Transition(id, TaskError, err.Error(), 0)
		return errorResult(provider, err)
	}

	if result.Error != "" {
		// A soft failure (recorded on the result, typically a parse error)
		// still finished the pipeline; surface it on the tracker without
		// discarding the rest of the result.
		tracker.Transition(id, TaskError, result.Error, 0)
	} else {
		tracker.Transition(id, TaskCompleted, "", 0)
	}
	return *result
}

// errorResult synthesizes the result for a hard failure, with a serialized
// dump of the failure on the raw trace for postmortem.
func errorResult(provider Provider, err error) ProviderResult {
	result := ProviderResult{
		Provider: provider,
		Mentions: []BrandMention{},
		Answers:  []Answer{},
		Error:    err.Error(),
	}

	dump := map[string]any{"error": err.Error()}
	var perr *driver.ProviderError
	if errors.As(err, &perr) && perr != nil {
		dump["status_code"] = perr.StatusCode
		if len(perr.RawResponse) > 0 {
			dump["body"] = string(perr.RawResponse)
		}
	}
	if raw, marshalErr := json.Marshal(dump); marshalErr == nil {
		result.RawTrace = []CallTrace{{Pass: "response", Error: err.Error(), Response: raw}}
	}

	return result
}

func buildTasks(prompts []string, providers []Provider) []Task {
	tasks := make([]Task, 0, len(prompts)*len(providers))
	for i, prompt := range prompts {
		for _, provider := range providers {
			tasks = append(tasks, Task{
				ID:       TaskID(i, provider),
				Label:    fmt.Sprintf("%s: %s", provider, truncateLabel(prompt, 60)),
				Status:   TaskPending,
				Provider: provider,
				Prompt:   i,
			})
		}
	}
	return tasks
}

func truncateLabel(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
