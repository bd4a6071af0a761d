package visibility

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseError reports model output that did not match the expected
// structured shape. It is never retryable: the same call would produce the
// same malformed output.
type ParseError struct {
	Pass string
	Err  error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "parse error"
	}
	return fmt.Sprintf("%s output malformed: %v", e.Pass, e.Err)
}

func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

type brandAnalysisPayload struct {
	Brands []BrandMention `json:"brands"`
}

// parseBrandAnalysis decodes the analysis pass output. When fenced is set,
// the JSON payload is extracted from a surrounding code fence first.
func parseBrandAnalysis(raw string, fenced bool) ([]BrandMention, error) {
	payload := strings.TrimSpace(raw)
	if fenced {
		payload = extractFencedPayload(payload)
	}
	if payload == "" {
		return nil, &ParseError{Pass: "analysis", Err: fmt.Errorf("empty payload")}
	}

	var parsed brandAnalysisPayload
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, &ParseError{Pass: "analysis", Err: err}
	}
	if parsed.Brands == nil {
		return nil, &ParseError{Pass: "analysis", Err: fmt.Errorf(`missing "brands" wrapper`)}
	}

	for i := range parsed.Brands {
		if parsed.Brands[i].Mentions < 0 {
			parsed.Brands[i].Mentions = 0
		}
		if strings.TrimSpace(parsed.Brands[i].Sentiment) == "" {
			parsed.Brands[i].Sentiment = SentimentNotMentioned
		}
	}

	return parsed.Brands, nil
}

// extractFencedPayload pulls the body out of a ```json fenced block. Input
// without a fence is returned as-is.
func extractFencedPayload(content string) string {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "```")
	if start < 0 {
		return trimmed
	}
	rest := trimmed[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		// Drop the language tag line ("json", "JSON", or empty).
		tag := strings.TrimSpace(rest[:nl])
		if tag == "" || len(tag) <= 8 && !strings.ContainsAny(tag, "{}[]") {
			rest = rest[nl+1:]
		}
	}
	if end := strings.LastIndex(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// ensureKnownBrands guarantees every configured brand appears exactly once
// in the analysis list, defaulting absentees to zero mentions. Model-added
// brands keep their reported order after the known ones; duplicates among
// them are deliberately not folded here, that is the aggregation layer's
// job.
func ensureKnownBrands(known []string, reported []BrandMention) []BrandMention {
	result := make([]BrandMention, 0, len(known)+len(reported))
	used := make([]bool, len(reported))

	for _, brand := range known {
		found := false
		for i, entry := range reported {
			if used[i] {
				continue
			}
			if strings.EqualFold(strings.TrimSpace(entry.Brand), strings.TrimSpace(brand)) {
				entry.Brand = brand
				result = append(result, entry)
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			result = append(result, BrandMention{Brand: brand, Mentions: 0, Sentiment: SentimentNotMentioned})
		}
	}

	for i, entry := range reported {
		if !used[i] {
			result = append(result, entry)
		}
	}

	return result
}
