package visibility

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/echolens/echolens/internal/visibility/driver"
)

// Adapter runs the full three-pass pipeline for one provider: primary
// completion, brand analysis, auxiliary questions. Adapters throw on hard
// failure and return a complete result on success; soft analysis failures
// (malformed model output) are recorded on the result instead of raised.
type Adapter interface {
	Provider() Provider
	Analyze(ctx context.Context, prompt string, cfg *RunConfig) (*ProviderResult, error)
}

// adapterOptions capture the per-variant protocol deltas.
type adapterOptions struct {
	// jsonHint requests response_format {"type":"json_object"} on the
	// analysis pass.
	jsonHint bool
	// fencedAnalysis extracts the analysis payload from a ```json fence
	// before parsing.
	fencedAnalysis bool
	// schemaAnalysis constrains the analysis pass with an exact response
	// schema.
	schemaAnalysis bool
	// collectCitations extracts Citation entries from the primary call.
	collectCitations bool
}

type adapter struct {
	provider Provider
	drv      driver.Driver
	// analysisModel handles passes 2–3; for search-augmented providers it
	// is a cheaper non-search model.
	model         string
	analysisModel string
	opts          adapterOptions
}

// newAdapter builds the adapter variant for a provider selection. The
// switch is exhaustive over the closed provider set; adding a provider
// means adding an arm here, a driver package, and a config entry.
func newAdapter(sel ProviderSelection, drv driver.Driver) Adapter {
	analysisModel := strings.TrimSpace(sel.AnalysisModel)
	if analysisModel == "" {
		analysisModel = sel.Model
	}

	base := adapter{
		provider:      sel.Provider,
		drv:           drv,
		model:         sel.Model,
		analysisModel: analysisModel,
	}

	switch sel.Provider {
	case ProviderOpenAI:
		base.opts = adapterOptions{jsonHint: true}
	case ProviderGrok:
		base.opts = adapterOptions{fencedAnalysis: true}
	case ProviderGemini:
		base.opts = adapterOptions{jsonHint: true, schemaAnalysis: true}
	case ProviderPerplexity:
		base.opts = adapterOptions{jsonHint: true, collectCitations: true}
	}

	return &base
}

func (a *adapter) Provider() Provider {
	return a.provider
}

// Analyze drives the three passes and assembles the provider result.
func (a *adapter) Analyze(ctx context.Context, prompt string, cfg *RunConfig) (*ProviderResult, error) {
	result := &ProviderResult{
		Provider: a.provider,
		Mentions: []BrandMention{},
		Answers:  []Answer{},
	}

	// Pass 1: primary completion. Failure here is fatal for the cell.
	primary, err := a.drv.Complete(ctx, &driver.Request{
		Model:    a.model,
		Messages: []driver.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, err
	}

	result.Response = primary.Text
	responseUsage := usageOf(primary)
	if cfg.CaptureRaw {
		result.RawTrace = append(result.RawTrace, CallTrace{Pass: "response", Model: a.model, Response: primary.Raw})
	}
	if a.opts.collectCitations {
		result.Citations = buildCitations(primary.Citations, primary.SearchResults)
	}

	// Pass 2: brand analysis against the primary answer.
	analysisUsage, err := a.runAnalysis(ctx, cfg, primary.Text, result)
	if err != nil {
		return nil, err
	}
	result.AnalysisUsage = analysisUsage

	// Pass 3: auxiliary questions, concurrently; answers are generated
	// strictly from the primary answer text.
	if len(cfg.Questions) > 0 {
		questionUsage, err := a.runQuestions(ctx, cfg, primary.Text, result)
		if err != nil {
			return nil, err
		}
		responseUsage.Input += questionUsage.Input
		responseUsage.Output += questionUsage.Output
	}
	result.ResponseUsage = &responseUsage

	return result, nil
}

func (a *adapter) runAnalysis(ctx context.Context, cfg *RunConfig, responseText string, result *ProviderResult) (*TokenUsage, error) {
	req := &driver.Request{
		Model: a.analysisModel,
		Messages: []driver.Message{
			{Role: "system", Content: analysisSystemPrompt},
			{Role: "user", Content: buildAnalysisPrompt(cfg, responseText)},
		},
	}
	if a.opts.jsonHint {
		req.ResponseFormat = &driver.ResponseFormat{Type: "json_object"}
	}
	if a.opts.schemaAnalysis {
		req.ResponseFormat = &driver.ResponseFormat{Type: "json_object", Schema: analysisSchema()}
	}

	resp, err := a.drv.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if cfg.CaptureRaw {
		result.RawTrace = append(result.RawTrace, CallTrace{Pass: "analysis", Model: a.analysisModel, Response: resp.Raw})
	}

	mentions, err := parseBrandAnalysis(resp.Text, a.opts.fencedAnalysis)
	if err != nil {
		// Malformed model output is a soft failure: record it and keep the
		// rest of the result usable. It must never loop through retry.
		result.Error = err.Error()
		result.Mentions = []BrandMention{}
	} else {
		result.Mentions = ensureKnownBrands(cfg.KnownBrands(), mentions)
	}

	usage := usageOf(resp)
	return &usage, nil
}

func (a *adapter) runQuestions(ctx context.Context, cfg *RunConfig, responseText string, result *ProviderResult) (TokenUsage, error) {
	answers := make([]Answer, len(cfg.Questions))
	traces := make([]CallTrace, len(cfg.Questions))
	var (
		mu    sync.Mutex
		total TokenUsage
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, question := range cfg.Questions {
		g.Go(func() error {
			resp, err := a.drv.Complete(gctx, &driver.Request{
				Model: a.analysisModel,
				Messages: []driver.Message{
					{Role: "user", Content: buildQuestionPrompt(question, responseText)},
				},
			})
			if err != nil {
				return fmt.Errorf("question %d: %w", i+1, err)
			}
			answers[i] = Answer{Question: question, Answer: strings.TrimSpace(resp.Text)}
			traces[i] = CallTrace{Pass: "question", Model: a.analysisModel, Response: resp.Raw}

			usage := usageOf(resp)
			mu.Lock()
			total.Input += usage.Input
			total.Output += usage.Output
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return TokenUsage{}, err
	}

	result.Answers = answers
	if cfg.CaptureRaw {
		result.RawTrace = append(result.RawTrace, traces...)
	}
	return total, nil
}

// buildCitations merges the plain citation list with the richer search
// result list, de-duplicated by URL. Entries from the plain list are
// indexed first; titles are backfilled from search results when available.
func buildCitations(citations []string, results []driver.SearchResult) []Citation {
	titles := make(map[string]string, len(results))
	for _, sr := range results {
		if sr.Title != "" {
			titles[sr.URL] = sr.Title
		}
	}

	seen := make(map[string]bool, len(citations)+len(results))
	out := make([]Citation, 0, len(citations)+len(results))

	add := func(url, title string) {
		url = strings.TrimSpace(url)
		if url == "" || seen[url] {
			return
		}
		seen[url] = true
		out = append(out, Citation{Index: len(out) + 1, URL: url, Title: title})
	}

	for _, url := range citations {
		add(url, titles[url])
	}
	for _, sr := range results {
		add(sr.URL, sr.Title)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func usageOf(resp *driver.Response) TokenUsage {
	if resp == nil || resp.Usage == nil {
		return TokenUsage{}
	}
	return TokenUsage{Input: resp.Usage.PromptTokens, Output: resp.Usage.CompletionTokens}
}
