package guardrails

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// StructuredVerdict is the JSON-schema verdict shape returned by
// general-purpose guardrail models, as opposed to the logprob-based
// classifier verdict. Confidence here is self-reported by the model.
type StructuredVerdict struct {
	Decision      string  `json:"decision"` // SAFE or UNSAFE
	Confidence    float64 `json:"confidence"`
	ViolationType string  `json:"violation_type"`
	Reasoning     string  `json:"reasoning"`
}

// ParseStructuredVerdict decodes a JSON guardrail response. Model output is
// often almost-JSON (fenced, trailing prose), so a repair pass is attempted
// before giving up.
func ParseStructuredVerdict(content string) (StructuredVerdict, error) {
	content = strings.TrimSpace(content)

	var verdict StructuredVerdict
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(content)
		if repairErr != nil {
			return StructuredVerdict{}, &ParseError{Reason: "invalid JSON verdict", Content: content}
		}
		if err := json.Unmarshal([]byte(repaired), &verdict); err != nil {
			return StructuredVerdict{}, &ParseError{Reason: "invalid JSON verdict after repair", Content: content}
		}
	}

	verdict.Decision = strings.ToUpper(strings.TrimSpace(verdict.Decision))
	switch verdict.Decision {
	case string(OutcomeSafe), string(OutcomeUnsafe):
	default:
		return StructuredVerdict{}, &ParseError{
			Reason:  "decision must be SAFE or UNSAFE",
			Content: content,
		}
	}

	if verdict.Confidence < 0 || verdict.Confidence > 1 {
		return StructuredVerdict{}, &ParseError{
			Reason:  "confidence out of range",
			Content: content,
		}
	}

	if verdict.ViolationType == "" {
		verdict.ViolationType = "none"
	}
	return verdict, nil
}

// Verdict maps a structured verdict onto the engine's verdict shape so both
// scoring modes feed the same threshold decision. The self-reported
// confidence backs whichever label the model chose.
func (v StructuredVerdict) Verdict() RiskVerdict {
	confidence := round4(v.Confidence)
	complement := round4(1 - v.Confidence)
	if v.Decision == string(OutcomeUnsafe) {
		return RiskVerdict{
			IsRisky:         true,
			RiskyConfidence: confidence,
			SafeConfidence:  complement,
		}
	}
	return RiskVerdict{
		SafeConfidence:  confidence,
		RiskyConfidence: complement,
	}
}
