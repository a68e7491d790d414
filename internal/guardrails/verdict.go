package guardrails

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"warden/internal/llm"
)

// Label tokens emitted by the safety classifier. "yes" means the prompt
// matches the risk definition.
const (
	safeLabel  = "no"
	riskyLabel = "yes"
)

var (
	// Newer classifier revisions wrap the label: "<score> yes </score>".
	scoreTagPattern = regexp.MustCompile(`(?i)<score>\s*(yes|no)\s*</score>`)
	// Older revisions answer with a bare label on its own line.
	bareLinePattern = regexp.MustCompile(`(?im)^\s*(yes|no)\s*$`)
)

// RiskVerdict is the parsed outcome of one classifier call.
//
// IsRisky follows the classifier's textual answer; the confidences come from
// logprob calibration. The two can disagree (label risky, confidence low) and
// both are kept: the label drives blocking, confidence drives thresholding.
type RiskVerdict struct {
	IsRisky         bool
	SafeConfidence  float64
	RiskyConfidence float64
}

// ParseError reports that a classifier response could not be turned into a
// verdict. It is never silently defaulted to a safe result.
type ParseError struct {
	Reason  string
	Content string
}

func (e *ParseError) Error() string {
	if e.Content == "" {
		return fmt.Sprintf("parse classifier response: %s", e.Reason)
	}
	return fmt.Sprintf("parse classifier response: %s (content: %s)", e.Reason, snippet(e.Content))
}

func snippet(s string) string {
	if len(s) <= 120 {
		return s
	}
	return s[:120] + "..."
}

// ParseVerdict extracts the label and calibrated confidences from one
// classifier response.
func ParseVerdict(resp *llm.CompletionResponse) (RiskVerdict, error) {
	if resp == nil {
		return RiskVerdict{}, &ParseError{Reason: "nil response"}
	}

	label, ok := extractLabel(resp.Content)
	if !ok {
		return RiskVerdict{}, &ParseError{
			Reason:  "no yes/no label found",
			Content: resp.Content,
		}
	}

	if len(resp.LogProbs) == 0 {
		return RiskVerdict{}, &ParseError{Reason: "response contained no logprobs"}
	}

	pSafe, pRisky := labelProbabilities(resp.LogProbs)

	return RiskVerdict{
		IsRisky:         label == riskyLabel,
		SafeConfidence:  round4(pSafe),
		RiskyConfidence: round4(pRisky),
	}, nil
}

func extractLabel(content string) (string, bool) {
	if m := scoreTagPattern.FindStringSubmatch(content); m != nil {
		return strings.ToLower(m[1]), true
	}
	if m := bareLinePattern.FindStringSubmatch(content); m != nil {
		return strings.ToLower(m[1]), true
	}
	return "", false
}

// labelProbabilities sums top-K probability mass for each label over every
// generation step, then calibrates the pair. A label token may be split into
// multiple pieces internally; each piece's mass counts toward its label.
func labelProbabilities(steps []llm.LogProbStep) (pSafe, pRisky float64) {
	safeProb := probFloor
	riskyProb := probFloor

	for _, step := range steps {
		for _, candidate := range step.TopLogProbs {
			token := strings.ToLower(strings.TrimSpace(candidate.Token))
			switch token {
			case safeLabel:
				safeProb += math.Exp(candidate.LogProb)
			case riskyLabel:
				riskyProb += math.Exp(candidate.LogProb)
			}
		}
	}

	return Calibrate(math.Log(safeProb), math.Log(riskyProb))
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
