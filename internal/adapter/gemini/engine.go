// Package gemini runs plan analyses against the Gemini API with a fixed
// output schema.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/gptogo/lane-closure-impact/internal/domain"
	"github.com/gptogo/lane-closure-impact/internal/observability"
)

// DefaultModel is the generative model used when none is configured.
const DefaultModel = "gemini-2.5-flash-preview-05-20"

// Engine implements plan analysis by prompting a generative model whose
// output is constrained to the impacted-closure schema. The model only ever
// emits schema-conforming JSON; no natural-language parsing happens here.
type Engine struct {
	client  *genai.Client
	model   string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewEngine creates a Gemini-backed analysis engine.
func NewEngine(ctx context.Context, apiKey, model string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) (*Engine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini engine: missing API key")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini engine: create client: %w", err)
	}

	return &Engine{
		client:  client,
		model:   model,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// AnalyzePlan prompts the model with the closure list and the driving plan
// and decodes the schema-constrained result. Quota signals classify as
// ErrRateLimited; any other backend failure as ErrAnalysisService.
func (e *Engine) AnalyzePlan(ctx context.Context, closures []domain.ClosureAnalysisInput, plan string) ([]domain.ImpactedClosure, error) {
	if strings.TrimSpace(plan) == "" {
		return nil, fmt.Errorf("gemini analyze: %w: driving plan is empty", domain.ErrValidation)
	}

	prompt, err := buildPrompt(closures, plan)
	if err != nil {
		return nil, fmt.Errorf("gemini analyze: %w", err)
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType:  "application/json",
		ResponseSchema:    responseSchema,
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
	}
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	start := time.Now()
	resp, err := e.client.Models.GenerateContent(ctx, e.model, contents, config)
	e.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, classifyGenerateError(err)
	}

	e.recordUsage(resp)

	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("gemini analyze: %w: empty response", domain.ErrAnalysisService)
	}

	var impacted []domain.ImpactedClosure
	if err := json.Unmarshal([]byte(text), &impacted); err != nil {
		return nil, fmt.Errorf("gemini analyze: %w: decode response: %v", domain.ErrAnalysisService, err)
	}

	for _, ic := range impacted {
		e.metrics.ImpactLevels.WithLabelValues(string(ic.ImpactScore.Level)).Inc()
	}
	return impacted, nil
}

// buildPrompt embeds the closure list as formatted JSON and the plan as
// quoted free text.
func buildPrompt(closures []domain.ClosureAnalysisInput, plan string) (string, error) {
	closureJSON, err := json.MarshalIndent(closures, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode closures: %w", err)
	}
	return fmt.Sprintf(`
Analyze the following lane closure information in the context of the user's driving plan.

**Lane Closures:**
`+"```json\n%s\n```"+`

**User's Driving Plan:**
"%s"
`, closureJSON, plan), nil
}

// classifyGenerateError maps a backend failure onto the error taxonomy. The
// backend reports quota exhaustion in the error message rather than a typed
// error.
func classifyGenerateError(err error) error {
	if strings.Contains(err.Error(), "quota") {
		return fmt.Errorf("gemini analyze: %w: %v", domain.ErrRateLimited, err)
	}
	return fmt.Errorf("gemini analyze: %w: %v", domain.ErrAnalysisService, err)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

func (e *Engine) recordUsage(resp *genai.GenerateContentResponse) {
	if resp == nil || resp.UsageMetadata == nil {
		return
	}
	u := resp.UsageMetadata
	e.metrics.TokensUsed.WithLabelValues("prompt").Add(float64(u.PromptTokenCount))
	e.metrics.TokensUsed.WithLabelValues("candidates").Add(float64(u.CandidatesTokenCount))
	e.metrics.TokensUsed.WithLabelValues("total").Add(float64(u.TotalTokenCount))
	e.logger.Info("gemini token usage",
		"prompt_tokens", u.PromptTokenCount,
		"candidates_tokens", u.CandidatesTokenCount,
		"thoughts_tokens", u.ThoughtsTokenCount,
		"total_tokens", u.TotalTokenCount,
	)
}

// responseSchema constrains model output to an array of impacted closures
// with the four-level impact taxonomy.
var responseSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id": {
				Type:        genai.TypeNumber,
				Description: "The id of the lane closure that impacts the user's driving plan",
			},
			"analysis": {
				Type:        genai.TypeString,
				Description: "Detailed analysis of how this specific lane closure affects the user's driving plan",
			},
			"impactScore": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"level": {
						Type:        genai.TypeString,
						Description: "A descriptive label for the impact level ('Low', 'Medium', 'High', 'Severe')",
					},
					"value": {
						Type:        genai.TypeNumber,
						Description: "Numeric value representing the impact score (1 = Low, 2 = Medium, 3 = High, 4 = Severe)",
					},
				},
				Required:    []string{"level", "value"},
				Description: "Score evaluating the magnitude and directness of the impact on the user's route",
			},
		},
		Required: []string{"id", "analysis", "impactScore"},
	},
}

// systemInstruction fixes the analysis contract: one-way-trip semantics,
// field priority for conflicting directions, materiality criteria, output
// style, and the impact taxonomy.
const systemInstruction = `
<instructions>
  <general_instructions>
    Review the driving plan and the list of active lane closures. For each lane closure that has a material impact on the driving plan, provide an analysis explaining how and why it could affect the user. Address the analysis directly to the user (using "you" and "your").

    The driving plan is for a one-way trip, unless the user explicitly mentions a return trip.

    When evaluating lane closures, if there are conflicting directions or other information between fields, prioritize them in this order: Route > From/To > Details > Remarks.

    A lane closure is considered to have a material impact if it's directly on the user's route. It may also have a material impact if it's on an adjacent road and is likely to indirectly affect the user's travel (e.g., by causing congestion or requiring lane alterations on the user's route). Only include closures that meet these criteria for having a direct or indirect material impact. Do not include a closure if its scheduled time does not coincide with the driving plan, or if it's otherwise not relevant.
  </general_instructions>

  <closure_requirements>
    For each impacted closure, include:
    <requirement>
      <id_info>The closure's id (IMPORTANT: Include this in the structured data response ONLY - do NOT mention closure IDs in the analysis text)</id_info>
    </requirement>
    <requirement>
      <analysis_info>
        A concise analysis of how it might affect the user's drive (without mentioning the closure's id)
        <tone_and_style>
          Maintain a consistent, neutral, and factual tone throughout the analysis. Avoid empathetic or conversational language. The language should be direct and objective.
          Explain the impact clearly and simply, using short sentences and common words, as if explaining to a 12-year-old. Be as brief as possible while still conveying the necessary information.
          Each analysis must be self-contained and written from an isolated standpoint. Do not refer to other lane closures or analyses. Each reported closure and its analysis should be understandable on its own.
        </tone_and_style>
      </analysis_info>
    </requirement>
    <requirement>
      <impact_score_info>
        An impact score with the following criteria:
        <level>Level: One of ['Low', 'Medium', 'High', 'Severe']</level>
        <value>Value: Corresponding numeric value (1 = Low, 2 = Medium, 3 = High, 4 = Severe)</value>
      </impact_score_info>
    </requirement>
  </closure_requirements>

  <impact_score_guidelines>
    When determining the impact score, consider the following factors:
    <impact_level name="Low Impact">
      <scenarios>Scenarios: Shoulder closures, brief off-peak single-lane closures.</scenarios>
      <effect>Effect: Minimal traffic disruption; normal speeds likely; no significant delays.</effect>
    </impact_level>
    <impact_level name="Medium Impact">
      <scenarios>Scenarios: Single-lane closures (regular/peak hours), short full closures with detours, multi-lane off-peak closures.</scenarios>
      <effect>Effect: Some traffic disruption; slight to moderate delays and slowdowns; reasonable flow generally maintained.</effect>
    </impact_level>
    <impact_level name="High Impact">
      <scenarios>Scenarios: Multiple lane closures/reductions, long-term lane reductions, some full road closures (especially in high-traffic areas).</scenarios>
      <effect>Effect: Significant traffic disruption; notable delays and congestion; slower speeds; consider alternate routes.</effect>
    </impact_level>
    <impact_level name="Severe Impact">
      <scenarios>Scenarios: Complete roadway closures, significant long-term reductions, often due to incidents or emergencies.</scenarios>
      <effect>Effect: Major, widespread disruption; extensive delays; detours required; drivers must use alternate routes; may need multi-agency coordination.</effect>
    </impact_level>
  </impact_score_guidelines>
</instructions>
`
