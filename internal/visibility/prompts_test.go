package visibility

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildAnalysisPromptExact(t *testing.T) {
	cfg := &RunConfig{
		ClientBrand: "Acme",
		Competitors: []string{"Globex", "Initech"},
		MatchMode:   MatchExact,
	}

	prompt := buildAnalysisPrompt(cfg, "Acme is a popular choice.")
	require.Contains(t, prompt, "- Acme")
	require.Contains(t, prompt, "- Globex")
	require.Contains(t, prompt, "- Initech")
	require.Contains(t, prompt, "exact string match")
	require.Contains(t, prompt, "Acme is a popular choice.")
	require.Contains(t, prompt, `{"brands":`)
	require.NotContains(t, prompt, "substring")
}

func TestBuildAnalysisPromptBroad(t *testing.T) {
	cfg := &RunConfig{
		ClientBrand: "Social Hub",
		Competitors: []string{"Globex"},
		MatchMode:   MatchBroad,
	}

	prompt := buildAnalysisPrompt(cfg, "Try Social Hub Amsterdam.")
	// The client brand matches as a substring; competitors stay exact.
	require.Contains(t, prompt, "substring")
	require.Contains(t, prompt, `"Social Hub Amsterdam" counts`)
	require.Contains(t, prompt, "exact string match")
	require.Contains(t, prompt, "- Globex")
}

func TestBuildAnalysisPromptNoCompetitors(t *testing.T) {
	cfg := &RunConfig{ClientBrand: "Acme", MatchMode: MatchBroad}
	prompt := buildAnalysisPrompt(cfg, "text")
	require.Contains(t, prompt, "(none)")
}

func TestBuildQuestionPrompt(t *testing.T) {
	prompt := buildQuestionPrompt("Which brand ranks first?", "Acme ranks first.")
	require.Contains(t, prompt, "based only on the text below")
	require.Contains(t, prompt, "Question: Which brand ranks first?")
	require.Contains(t, prompt, "Acme ranks first.")
	// The question prompt must forbid outside knowledge.
	require.Contains(t, prompt, "Do not use outside knowledge")
}

func TestAnalysisSchemaShape(t *testing.T) {
	schema := analysisSchema()
	require.Equal(t, "object", schema["type"])
	require.Equal(t, []string{"brands"}, schema["required"])

	props := schema["properties"].(map[string]any)
	brands := props["brands"].(map[string]any)
	require.Equal(t, "array", brands["type"])

	items := brands["items"].(map[string]any)
	itemProps := items["properties"].(map[string]any)
	sentiment := itemProps["sentiment"].(map[string]any)
	require.ElementsMatch(t,
		[]string{SentimentPositive, SentimentNeutral, SentimentNegative, SentimentNotMentioned},
		sentiment["enum"].([]string))
}

func TestBrandList(t *testing.T) {
	require.Equal(t, "- Acme\n- Globex", brandList([]string{"Acme", "Globex"}))
	require.Equal(t, "(none)", brandList(nil))
	require.False(t, strings.HasSuffix(brandList([]string{"Acme"}), "\n"))
}
