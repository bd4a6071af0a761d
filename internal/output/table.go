// Package output renders analysis results for the CLI.
package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/echolens/echolens/internal/visibility"
)

// TableFormatter renders results as ASCII tables, one per prompt.
type TableFormatter struct{}

// Format renders the full result set.
func (f *TableFormatter) Format(results []visibility.PromptResult) (string, error) {
	var b strings.Builder

	for i, pr := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Prompt %d: %s\n", i+1, pr.Prompt)

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Provider", "Brand", "Mentions", "Sentiment", "Status"})

		for _, result := range pr.Results {
			status := "ok"
			if result.Error != "" {
				status = "error: " + truncate(result.Error, 48)
			}
			if len(result.Mentions) == 0 {
				t.AppendRow(table.Row{string(result.Provider), "-", "-", "-", status})
				continue
			}
			for j, mention := range result.Mentions {
				provider := ""
				cellStatus := ""
				if j == 0 {
					provider = string(result.Provider)
					cellStatus = status
				}
				t.AppendRow(table.Row{provider, mention.Brand, mention.Mentions, mention.Sentiment, cellStatus})
			}
		}
		b.WriteString(t.Render())

		if extras := renderExtras(pr); extras != "" {
			b.WriteString("\n")
			b.WriteString(extras)
		}
	}

	return b.String(), nil
}

func renderExtras(pr visibility.PromptResult) string {
	var b strings.Builder
	for _, result := range pr.Results {
		if len(result.Citations) > 0 {
			fmt.Fprintf(&b, "\nSources (%s):\n", result.Provider)
			for _, c := range result.Citations {
				if c.Title != "" {
					fmt.Fprintf(&b, "  [%d] %s — %s\n", c.Index, c.Title, c.URL)
				} else {
					fmt.Fprintf(&b, "  [%d] %s\n", c.Index, c.URL)
				}
			}
		}
		for _, answer := range result.Answers {
			fmt.Fprintf(&b, "\nQ (%s): %s\nA: %s\n", result.Provider, answer.Question, answer.Answer)
		}
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
