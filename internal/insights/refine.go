package insights

import (
	"context"
	"encoding/json"
	"strings"

	"google.golang.org/genai"

	"github.com/ledgerkit/finrecon/internal/domain"
	"github.com/ledgerkit/finrecon/internal/logger"
)

// DefaultModelName is the Gemini model used to refine action wording.
const DefaultModelName = "gemini-2.5-flash"

// Refiner rewrites heuristic actions with an LLM. Refinement is strictly
// best-effort: any failure returns the heuristic actions untouched.
type Refiner struct {
	model string
}

func NewRefiner(model string) *Refiner {
	if model == "" {
		model = DefaultModelName
	}
	return &Refiner{model: model}
}

type refinedAction struct {
	MerchantKey                  string  `json:"merchant_key"`
	Type                         string  `json:"type"`
	Title                        string  `json:"title"`
	Reason                       string  `json:"reason"`
	EstimatedMonthlySavingsMinor *int64  `json:"estimated_monthly_savings_minor"`
	Confidence                   float64 `json:"confidence"`
}

// Refine asks the model for better titles, reasons and estimates, then
// merges the response back into the heuristic actions by merchant key
// and type. Anything the model drops or invents is ignored.
func (r *Refiner) Refine(ctx context.Context, actions []domain.Action) []domain.Action {
	if len(actions) == 0 {
		return actions
	}
	log := logger.FromContext(ctx)

	payload, err := json.Marshal(toRefinementInput(actions))
	if err != nil {
		log.Warn().Err(err).Msg("action refinement skipped: marshal")
		return actions
	}

	prompt := "You are a personal-finance assistant reviewing suggested savings actions.\n\n" +
		"Task:\n" +
		"- For each action below, rewrite \"title\" and \"reason\" to be specific and helpful.\n" +
		"- You may adjust \"estimated_monthly_savings_minor\" (integer pence) and \"confidence\" (0..1) when the suggestion over- or under-states the saving.\n" +
		"- Keep \"merchant_key\" and \"type\" exactly as given. Do not add or remove actions.\n\n" +
		"Return ONLY valid raw JSON: an array of objects with the same fields.\n" +
		"Do NOT wrap the response in code fences.\n" +
		"Output must begin with \"[\" and end with \"]\".\n\n" +
		"Actions:\n" + string(payload)

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		log.Warn().Err(err).Msg("action refinement skipped: genai client")
		return actions
	}

	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: prompt}}},
	}
	resp, err := client.Models.GenerateContent(ctx, r.model, contents, nil)
	if err != nil {
		log.Warn().Err(err).Msg("action refinement skipped: generate content")
		return actions
	}

	rawText := resp.Text()
	if rawText == "" {
		log.Warn().Msg("action refinement skipped: empty model response")
		return actions
	}

	var refined []refinedAction
	if err := json.Unmarshal([]byte(cleanModelJSON(rawText)), &refined); err != nil {
		log.Warn().Err(err).Msg("action refinement skipped: unmarshal")
		return actions
	}

	return mergeRefined(actions, refined)
}

func toRefinementInput(actions []domain.Action) []refinedAction {
	out := make([]refinedAction, 0, len(actions))
	for _, a := range actions {
		savings := a.EstimatedMonthlySavingsMinor
		out = append(out, refinedAction{
			MerchantKey:                  a.MerchantKey,
			Type:                         string(a.Type),
			Title:                        a.Title,
			Reason:                       a.Reason,
			EstimatedMonthlySavingsMinor: &savings,
			Confidence:                   a.Confidence,
		})
	}
	return out
}

func mergeRefined(actions []domain.Action, refined []refinedAction) []domain.Action {
	byKey := make(map[string]refinedAction, len(refined))
	for _, r := range refined {
		byKey[r.MerchantKey+"|"+r.Type] = r
	}

	out := make([]domain.Action, len(actions))
	copy(out, actions)
	for i := range out {
		r, ok := byKey[out[i].MerchantKey+"|"+string(out[i].Type)]
		if !ok {
			continue
		}
		if r.Title != "" {
			out[i].Title = r.Title
		}
		if r.Reason != "" {
			out[i].Reason = r.Reason
		}
		if r.EstimatedMonthlySavingsMinor != nil && *r.EstimatedMonthlySavingsMinor > 0 {
			out[i].EstimatedMonthlySavingsMinor = *r.EstimatedMonthlySavingsMinor
		}
		if r.Confidence > 0 && r.Confidence <= 1 {
			out[i].Confidence = r.Confidence
		}
		out[i].Origin = "llm"
	}
	return out
}

// cleanModelJSON strips markdown fences and surrounding prose when the
// model ignores the raw-JSON instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
