// Package ai generates per-listing deal analyses through an LLM completion
// API. One call covers one listing; callers bound the fan-out and cache
// results, this package only shapes the prompt and parses the reply.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"rentradar/internal/domain/model"
)

// Verdict is the parsed outcome of one analysis call. Score is nil when the
// reply carried no usable score line.
type Verdict struct {
	Score    *int
	Analysis string
}

// Analyzer produces a deal verdict for one listing.
type Analyzer interface {
	Analyze(ctx context.Context, l model.Listing, marketRate int) (Verdict, error)
}

// New creates an Analyzer for the given provider. Supported providers are
// "claude" and "openai"; the model falls back to a provider default when
// empty.
func New(provider, model, apiKey string) (Analyzer, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}

	client := &http.Client{Timeout: 30 * time.Second}

	switch provider {
	case "", "claude":
		if model == "" {
			model = "claude-sonnet-4-20250514"
		}
		return &claudeProvider{apiKey: apiKey, model: model, client: client}, nil
	case "openai":
		if model == "" {
			model = "gpt-4o-mini"
		}
		return &openaiProvider{apiKey: apiKey, model: model, client: client}, nil
	default:
		return nil, fmt.Errorf("%w: %q (valid: claude, openai)", ErrUnknownProvider, provider)
	}
}

const maxAnalysisTokens = 280

const analyzePrompt = `%s

Give a short overview of this apartment and rate it as a deal (0-100). Be specific about why it stands out vs similar listings, or why it doesn't.

What to consider:
- Price vs market: below market = better deal; above = overpriced.
- Laundry: in-unit washer/dryer is a major plus; in-building is a plus; none is a drawback.
- Space: higher sqft for the price (or per bedroom) is better; call out if it's roomy or tight for the bed count.
- Bedrooms: more beds at this price band can mean better value.
- Bed:bath ratio: 1:1 (e.g. each bedroom with its own bath) is a strong plus; shared baths are normal but note if ratio is worse than typical.
- Parking: included or available is a plus.
- Neighborhood: desirable areas can justify a premium; mention if the area adds or subtracts value.

Scoring:
- 80-100: Excellent (well below market and/or standout amenities: in-unit laundry, 1:1 bed:bath, parking, more space).
- 65-79: Good deal (below market or clear perks vs comparable units).
- 50-64: Fair (at market; no major pros or cons).
- 35-49: Overpriced (above market or weak amenities for the price).
- 0-34: Poor deal (well above market or missing basics for the price).

In your analysis, say concretely what makes this a better or worse deal than other similar units.

Format your response as:
SCORE: [number 0-100]
ANALYSIS: [2-3 sentences: brief overview of the unit, then specific reasons it's a better or worse deal than similar listings]`

var (
	scoreRe    = regexp.MustCompile(`SCORE:\s*(\d+)`)
	analysisRe = regexp.MustCompile(`(?s)ANALYSIS:\s*(.+)`)
)

// listingContext renders the listing facts block at the top of the prompt.
func listingContext(l model.Listing, marketRate int) string {
	price := "price unknown"
	if l.Price != nil {
		price = fmt.Sprintf("$%d/month", *l.Price)
	}
	beds := "bedrooms unknown"
	if l.Bedrooms != nil {
		if *l.Bedrooms == 0 {
			beds = "Studio"
		} else {
			beds = fmt.Sprintf("%d bedroom", *l.Bedrooms)
		}
	}
	baths := "bath unknown"
	if l.Bathrooms != nil {
		baths = fmt.Sprintf("%g bath", *l.Bathrooms)
	}
	sqft := "size unknown"
	if l.Sqft != nil {
		sqft = fmt.Sprintf("%d sqft", *l.Sqft)
	}
	perSqft := "N/A"
	if l.PricePerSqft != nil {
		perSqft = fmt.Sprintf("$%.2f/sqft", *l.PricePerSqft)
	}
	discount := 0.0
	if l.DiscountPct != nil {
		discount = *l.DiscountPct
	}
	laundry := "Laundry not specified"
	switch l.Laundry {
	case model.LaundryInUnit:
		laundry = "In-unit washer/dryer"
	case model.LaundryInBuilding:
		laundry = "Laundry in building"
	}
	parking := "Parking not mentioned"
	if l.Parking {
		parking = "Parking mentioned (incl. or available)"
	}

	return fmt.Sprintf(
		"Apartment: %s, %s, %s, %s\n"+
			"Location: %s\n"+
			"Price per sqft: %s\n"+
			"Market rate for this unit type: $%d\n"+
			"Price vs market: %+.1f%% (positive = below market / good; negative = above market / overpriced)\n"+
			"%s. %s.\n"+
			"Title: %s",
		price, beds, baths, sqft, l.Neighborhood, perSqft, marketRate, discount, laundry, parking, l.Title)
}

// parseVerdict extracts the SCORE and ANALYSIS lines. The analysis text is
// trimmed to at most three sentences; a missing analysis line gets a neutral
// placeholder so callers never surface raw model output problems.
func parseVerdict(text string) Verdict {
	var v Verdict
	if m := scoreRe.FindStringSubmatch(text); m != nil {
		if score, err := strconv.Atoi(m[1]); err == nil && score >= 0 && score <= 100 {
			v.Score = model.IntPtr(score)
		}
	}
	if m := analysisRe.FindStringSubmatch(text); m != nil {
		v.Analysis = trimSentences(strings.TrimSpace(m[1]), 3)
	}
	if v.Analysis == "" {
		v.Analysis = "Reasonable option in this price range."
	}
	return v
}

func trimSentences(text string, n int) string {
	var sentences []string
	for _, s := range strings.Split(text, ".") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		sentences = append(sentences, s)
		if len(sentences) == n {
			break
		}
	}
	if len(sentences) == 0 {
		return ""
	}
	return strings.Join(sentences, ". ") + "."
}

// --- Claude provider ---

type claudeProvider struct {
	apiKey string
	model  string
	client *http.Client
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (c *claudeProvider) Analyze(ctx context.Context, l model.Listing, marketRate int) (Verdict, error) {
	prompt := fmt.Sprintf(analyzePrompt, listingContext(l, marketRate))
	text, err := c.call(ctx, prompt)
	if err != nil {
		return Verdict{}, err
	}
	return parseVerdict(text), nil
}

func (c *claudeProvider) call(ctx context.Context, prompt string) (string, error) {
	body, _ := json.Marshal(claudeRequest{
		Model:     c.model,
		MaxTokens: maxAnalysisTokens,
		Messages:  []claudeMessage{{Role: "user", Content: prompt}},
	})

	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.anthropic.com/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("claude API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("claude API %d: %s", resp.StatusCode, string(b))
	}

	var cr claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if len(cr.Content) == 0 {
		return "", fmt.Errorf("empty claude response")
	}
	return cr.Content[0].Text, nil
}

// --- OpenAI provider ---

type openaiProvider struct {
	apiKey string
	model  string
	client *http.Client
}

type openaiRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []openaiMessage `json:"messages"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *openaiProvider) Analyze(ctx context.Context, l model.Listing, marketRate int) (Verdict, error) {
	prompt := fmt.Sprintf(analyzePrompt, listingContext(l, marketRate))
	text, err := o.call(ctx, prompt)
	if err != nil {
		return Verdict{}, err
	}
	return parseVerdict(text), nil
}

func (o *openaiProvider) call(ctx context.Context, prompt string) (string, error) {
	body, _ := json.Marshal(openaiRequest{
		Model:     o.model,
		MaxTokens: maxAnalysisTokens,
		Messages:  []openaiMessage{{Role: "user", Content: prompt}},
	})

	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.openai.com/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("openai API %d: %s", resp.StatusCode, string(b))
	}

	var or openaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return "", err
	}
	if len(or.Choices) == 0 {
		return "", fmt.Errorf("empty openai response")
	}
	return or.Choices[0].Message.Content, nil
}
