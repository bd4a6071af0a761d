package output

import (
	"fmt"
	"strings"

	"github.com/echolens/echolens/internal/visibility"
)

// MarkdownFormatter renders results as a markdown report.
type MarkdownFormatter struct{}

// Format renders the full result set.
func (f *MarkdownFormatter) Format(results []visibility.PromptResult) (string, error) {
	var b strings.Builder
	b.WriteString("# Brand Visibility Report\n")

	for i, pr := range results {
		fmt.Fprintf(&b, "\n## Prompt %d: %s\n", i+1, pr.Prompt)

		for _, result := range pr.Results {
			fmt.Fprintf(&b, "\n### %s\n", result.Provider)
			if result.Error != "" {
				fmt.Fprintf(&b, "\n> Error: %s\n", result.Error)
			}
			if result.Response != "" {
				fmt.Fprintf(&b, "\n%s\n", result.Response)
			}

			if len(result.Mentions) > 0 {
				b.WriteString("\n| Brand | Mentions | Sentiment |\n|---|---|---|\n")
				for _, mention := range result.Mentions {
					fmt.Fprintf(&b, "| %s | %d | %s |\n", escapePipes(mention.Brand), mention.Mentions, mention.Sentiment)
				}
			}

			for _, c := range result.Citations {
				if c.Title != "" {
					fmt.Fprintf(&b, "- [%d] [%s](%s)\n", c.Index, c.Title, c.URL)
				} else {
					fmt.Fprintf(&b, "- [%d] <%s>\n", c.Index, c.URL)
				}
			}

			for _, answer := range result.Answers {
				fmt.Fprintf(&b, "\n**%s**\n\n%s\n", answer.Question, answer.Answer)
			}
		}
	}

	return b.String(), nil
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
