package visibility

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/echolens/echolens/internal/visibility/driver"
)

// fakeAdapter scripts Analyze outcomes per call.
type fakeAdapter struct {
	provider Provider

	mu    sync.Mutex
	calls int
	run   func(call int, prompt string) (*ProviderResult, error)
}

func (f *fakeAdapter) Provider() Provider { return f.provider }

func (f *fakeAdapter) Analyze(ctx context.Context, prompt string, cfg *RunConfig) (*ProviderResult, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	return f.run(call, prompt)
}

func okResult(p Provider, response string) *ProviderResult {
	return &ProviderResult{
		Provider: p,
		Response: response,
		Mentions: []BrandMention{{Brand: "Acme", Mentions: 1, Sentiment: SentimentPositive}},
		Answers:  []Answer{},
	}
}

func fakeClientSet(adapters ...*fakeAdapter) func(cfg *RunConfig) (*ClientSet, error) {
	return func(cfg *RunConfig) (*ClientSet, error) {
		set := &ClientSet{adapters: map[Provider]Adapter{}}
		for _, a := range adapters {
			set.adapters[a.provider] = a
			set.order = append(set.order, a.provider)
		}
		return set, nil
	}
}

func instantRetry(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries: maxRetries,
		BaseDelay:  time.Second,
		Sleeper:    func(ctx context.Context, d time.Duration) error { return nil },
	}
}

func runConfig(prompts ...string) *RunConfig {
	return &RunConfig{
		ClientBrand: "Acme",
		Prompts:     prompts,
		MatchMode:   MatchExact,
	}
}

func TestRunPreservesPromptAndProviderOrder(t *testing.T) {
	openaiAdapter := &fakeAdapter{provider: ProviderOpenAI, run: func(call int, prompt string) (*ProviderResult, error) {
		return okResult(ProviderOpenAI, "openai: "+prompt), nil
	}}
	geminiAdapter := &fakeAdapter{provider: ProviderGemini, run: func(call int, prompt string) (*ProviderResult, error) {
		time.Sleep(5 * time.Millisecond) // finish after openai
		return okResult(ProviderGemini, "gemini: "+prompt), nil
	}}

	svc := NewService(nil)
	svc.SetRetryPolicy(instantRetry(0))
	svc.newClients = fakeClientSet(geminiAdapter, openaiAdapter)

	results, err := svc.Run(context.Background(), runConfig("first", "second"), nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.Equal(t, "first", results[0].Prompt)
	require.Equal(t, "second", results[1].Prompt)
	for _, pr := range results {
		require.Len(t, pr.Results, 2)
		// Selection order, not completion order.
		require.Equal(t, ProviderGemini, pr.Results[0].Provider)
		require.Equal(t, ProviderOpenAI, pr.Results[1].Provider)
	}
	require.Equal(t, "gemini: second", results[1].Results[0].Response)
}

func TestRunRetriesTransientFailures(t *testing.T) {
	flaky := &fakeAdapter{provider: ProviderOpenAI, run: func(call int, prompt string) (*ProviderResult, error) {
		if call <= 2 {
			return nil, &driver.ProviderError{Provider: "openai", StatusCode: 503, Message: "unavailable"}
		}
		return okResult(ProviderOpenAI, "recovered"), nil
	}}

	var mu sync.Mutex
	var finalTasks []Task
	svc := NewService(nil)
	svc.SetRetryPolicy(instantRetry(2))
	svc.newClients = fakeClientSet(flaky)

	results, err := svc.Run(context.Background(), runConfig("prompt"), func(tasks []Task) {
		mu.Lock()
		finalTasks = tasks
		mu.Unlock()
	})
	require.NoError(t, err)
	require.Equal(t, "recovered", results[0].Results[0].Response)
	require.Empty(t, results[0].Results[0].Error)

	require.Len(t, finalTasks, 1)
	require.Equal(t, TaskCompleted, finalTasks[0].Status)
	require.Equal(t, 2, finalTasks[0].Retries)
}

func TestRunFoldsHardFailureIntoResult(t *testing.T) {
	failing := &fakeAdapter{provider: ProviderGrok, run: func(call int, prompt string) (*ProviderResult, error) {
		return nil, &driver.ProviderError{Provider: "grok", StatusCode: 500, Message: "boom", RawResponse: []byte(`{"err":true}`)}
	}}
	healthy := &fakeAdapter{provider: ProviderOpenAI, run: func(call int, prompt string) (*ProviderResult, error) {
		return okResult(ProviderOpenAI, "fine"), nil
	}}

	svc := NewService(nil)
	svc.SetRetryPolicy(instantRetry(1))
	svc.newClients = fakeClientSet(failing, healthy)

	results, err := svc.Run(context.Background(), runConfig("prompt"), nil)
	require.NoError(t, err)

	// The grid shape survives the failure.
	require.Len(t, results, 1)
	require.Len(t, results[0].Results, 2)

	grokResult := results[0].Results[0]
	require.Equal(t, ProviderGrok, grokResult.Provider)
	require.Contains(t, grokResult.Error, "status 500")
	require.Empty(t, grokResult.Response)
	require.Empty(t, grokResult.Mentions)

	// The failure dump lands on the raw trace.
	require.Len(t, grokResult.RawTrace, 1)
	require.Contains(t, string(grokResult.RawTrace[0].Response), `"status_code":500`)
	require.Contains(t, string(grokResult.RawTrace[0].Response), "err")

	require.Equal(t, "fine", results[0].Results[1].Response)
}

func TestRunDoesNotRetryAuthFailure(t *testing.T) {
	denied := &fakeAdapter{provider: ProviderOpenAI, run: func(call int, prompt string) (*ProviderResult, error) {
		return nil, &driver.ProviderError{Provider: "openai", StatusCode: 401, Message: "invalid key"}
	}}

	svc := NewService(nil)
	svc.SetRetryPolicy(instantRetry(5))
	svc.newClients = fakeClientSet(denied)

	results, err := svc.Run(context.Background(), runConfig("prompt"), nil)
	require.NoError(t, err)
	require.Equal(t, 1, denied.calls)
	require.Contains(t, results[0].Results[0].Error, "invalid key")
}

func TestRunSoftFailureMarksTaskErrorButKeepsResult(t *testing.T) {
	soft := &fakeAdapter{provider: ProviderOpenAI, run: func(call int, prompt string) (*ProviderResult, error) {
		r := okResult(ProviderOpenAI, "primary text survived")
		r.Mentions = []BrandMention{}
		r.Error = "analysis output malformed: unexpected end of JSON input"
		return r, nil
	}}

	var mu sync.Mutex
	var finalTasks []Task
	svc := NewService(nil)
	svc.newClients = fakeClientSet(soft)

	results, err := svc.Run(context.Background(), runConfig("prompt"), func(tasks []Task) {
		mu.Lock()
		finalTasks = tasks
		mu.Unlock()
	})
	require.NoError(t, err)

	require.Equal(t, 1, soft.calls) // parse failures never loop through retry
	require.Equal(t, "primary text survived", results[0].Results[0].Response)
	require.Equal(t, TaskError, finalTasks[0].Status)
	require.Contains(t, finalTasks[0].Error, "malformed")
}

func TestRunRejectsInvalidConfigBeforeAnyWork(t *testing.T) {
	svc := NewService(nil)

	var snapshots int
	cfg := &RunConfig{
		Selections: []ProviderSelection{{Provider: ProviderOpenAI, Model: "gpt-test", CredentialRef: "openai"}},
		// Credential "openai" missing.
		Credentials: map[string]string{},
		ClientBrand: "Acme",
		Prompts:     []string{"prompt"},
		MatchMode:   MatchExact,
	}

	_, err := svc.Run(context.Background(), cfg, func(tasks []Task) { snapshots++ })
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.Contains(t, err.Error(), `credential "openai" is missing`)
	require.Zero(t, snapshots)
}

func TestRunEmitsTaskLifecycle(t *testing.T) {
	ok := &fakeAdapter{provider: ProviderOpenAI, run: func(call int, prompt string) (*ProviderResult, error) {
		return okResult(ProviderOpenAI, "done"), nil
	}}

	var mu sync.Mutex
	var statuses []TaskStatus
	svc := NewService(nil)
	svc.newClients = fakeClientSet(ok)

	_, err := svc.Run(context.Background(), runConfig("prompt"), func(tasks []Task) {
		mu.Lock()
		statuses = append(statuses, tasks[0].Status)
		mu.Unlock()
	})
	require.NoError(t, err)
	require.Equal(t, []TaskStatus{TaskPending, TaskInProgress, TaskCompleted}, statuses)
}

func TestBuildTasksLabels(t *testing.T) {
	long := "what is the best customer relationship management platform for a mid-size business"
	tasks := buildTasks([]string{long}, []Provider{ProviderOpenAI, ProviderPerplexity})
	require.Len(t, tasks, 2)
	require.Equal(t, "p0-openai", tasks[0].ID)
	require.Equal(t, "p0-perplexity", tasks[1].ID)
	require.Contains(t, tasks[0].Label, "openai: ")
	require.Less(t, len(tasks[0].Label)-len("openai: "), len(long))
}
