package output

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/echolens/echolens/internal/visibility"
)

func sampleResults() []visibility.PromptResult {
	return []visibility.PromptResult{
		{
			Prompt: "best crm software",
			Results: []visibility.ProviderResult{
				{
					Provider: visibility.ProviderOpenAI,
					Response: "Acme and Globex are both solid options.",
					Mentions: []visibility.BrandMention{
						{Brand: "Acme", Mentions: 2, Sentiment: visibility.SentimentPositive},
						{Brand: "Globex", Mentions: 1, Sentiment: visibility.SentimentNeutral},
					},
					Answers: []visibility.Answer{
						{Question: "Which vendor is recommended?", Answer: "Both are recommended."},
					},
				},
				{
					Provider: visibility.ProviderPerplexity,
					Response: "Acme leads the market.",
					Mentions: []visibility.BrandMention{
						{Brand: "Acme", Mentions: 1, Sentiment: visibility.SentimentPositive},
						{Brand: "Globex", Mentions: 0, Sentiment: visibility.SentimentNotMentioned},
					},
					Answers: []visibility.Answer{},
					Citations: []visibility.Citation{
						{Index: 1, URL: "https://a.example/one", Title: "Market Review"},
						{Index: 2, URL: "https://b.example/two"},
					},
				},
				{
					Provider: visibility.ProviderGrok,
					Mentions: []visibility.BrandMention{},
					Answers:  []visibility.Answer{},
					Error:    "grok request failed: status 500: boom",
				},
			},
		},
	}
}

func TestTableFormatter(t *testing.T) {
	out, err := (&TableFormatter{}).Format(sampleResults())
	require.NoError(t, err)

	require.Contains(t, out, "Prompt 1: best crm software")
	require.Contains(t, out, "Acme")
	require.Contains(t, out, "Positive")
	require.Contains(t, out, "Not Mentioned")
	require.Contains(t, out, "error: ")

	// Citations and answers render below the table.
	require.Contains(t, out, "Sources (perplexity):")
	require.Contains(t, out, "[1] Market Review — https://a.example/one")
	require.Contains(t, out, "[2] https://b.example/two")
	require.Contains(t, out, "Q (openai): Which vendor is recommended?")
}

func TestJSONFormatterRoundTrips(t *testing.T) {
	out, err := (&JSONFormatter{}).Format(sampleResults())
	require.NoError(t, err)
	require.False(t, strings.Contains(out, "\n  "))

	var decoded []visibility.PromptResult
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Equal(t, sampleResults(), decoded)

	pretty, err := (&JSONFormatter{Indent: true}).Format(sampleResults())
	require.NoError(t, err)
	require.Contains(t, pretty, "\n  ")
}

func TestMarkdownFormatter(t *testing.T) {
	out, err := (&MarkdownFormatter{}).Format(sampleResults())
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(out, "# Brand Visibility Report\n"))
	require.Contains(t, out, "## Prompt 1: best crm software")
	require.Contains(t, out, "### openai")
	require.Contains(t, out, "| Brand | Mentions | Sentiment |")
	require.Contains(t, out, "| Acme | 2 | Positive |")
	require.Contains(t, out, "> Error: grok request failed")
	require.Contains(t, out, "- [1] [Market Review](https://a.example/one)")
	require.Contains(t, out, "- [2] <https://b.example/two>")
	require.Contains(t, out, "**Which vendor is recommended?**")
}

func TestMarkdownEscapesPipes(t *testing.T) {
	results := []visibility.PromptResult{{
		Prompt: "p",
		Results: []visibility.ProviderResult{{
			Provider: visibility.ProviderOpenAI,
			Mentions: []visibility.BrandMention{{Brand: "A|B", Mentions: 1, Sentiment: visibility.SentimentNeutral}},
		}},
	}}

	out, err := (&MarkdownFormatter{}).Format(results)
	require.NoError(t, err)
	require.Contains(t, out, `| A\|B | 1 | Neutral |`)
}

func TestProgressPrinter(t *testing.T) {
	var b strings.Builder
	p := &ProgressPrinter{W: &b}

	tasks := []visibility.Task{
		{ID: "p0-openai", Label: "openai: best crm", Status: visibility.TaskPending},
		{ID: "p0-grok", Label: "grok: best crm", Status: visibility.TaskPending},
	}
	p.Observe(tasks)
	require.Empty(t, b.String())

	tasks[0].Status = visibility.TaskInProgress
	p.Observe(tasks)
	require.Contains(t, b.String(), "openai: best crm started")

	// Unchanged snapshots print nothing new.
	before := b.String()
	p.Observe(tasks)
	require.Equal(t, before, b.String())

	tasks[0].Retries = 1
	tasks[0].Error = "status 503"
	p.Observe(tasks)
	require.Contains(t, b.String(), "retrying (attempt 2): status 503")

	tasks[0].Status = visibility.TaskCompleted
	tasks[0].Error = ""
	tasks[1].Status = visibility.TaskError
	tasks[1].Error = "boom"
	p.Observe(tasks)
	require.Contains(t, b.String(), "openai: best crm done")
	require.Contains(t, b.String(), "grok: best crm failed: boom")
	require.Contains(t, b.String(), "[2/2]")
}
