package guardrails

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warden/internal/llm"
)

// labeledSteps builds a single-step logprob payload carrying the given
// top-K probability mass for each label.
func labeledSteps(pYes, pNo float64) []llm.LogProbStep {
	return []llm.LogProbStep{{
		Token:   "yes",
		LogProb: math.Log(math.Max(pYes, probFloor)),
		TopLogProbs: []llm.TokenLogProb{
			{Token: " yes", LogProb: math.Log(math.Max(pYes, probFloor))},
			{Token: "No", LogProb: math.Log(math.Max(pNo, probFloor))},
		},
	}}
}

func TestParseVerdictScoreTag(t *testing.T) {
	resp := &llm.CompletionResponse{
		Content:  "<score> yes </score>",
		LogProbs: labeledSteps(0.72, 0.18),
	}

	verdict, err := ParseVerdict(resp)
	require.NoError(t, err)
	assert.True(t, verdict.IsRisky)
	assert.InDelta(t, 0.8, verdict.RiskyConfidence, 1e-9)
	assert.InDelta(t, 0.2, verdict.SafeConfidence, 1e-9)
}

func TestParseVerdictScoreTagCaseInsensitive(t *testing.T) {
	resp := &llm.CompletionResponse{
		Content:  "<SCORE>No</SCORE>",
		LogProbs: labeledSteps(0.1, 0.9),
	}

	verdict, err := ParseVerdict(resp)
	require.NoError(t, err)
	assert.False(t, verdict.IsRisky)
}

func TestParseVerdictBareLine(t *testing.T) {
	resp := &llm.CompletionResponse{
		Content:  "Let me think.\nYes\n",
		LogProbs: labeledSteps(0.9, 0.05),
	}

	verdict, err := ParseVerdict(resp)
	require.NoError(t, err)
	assert.True(t, verdict.IsRisky)
}

func TestParseVerdictNoLabel(t *testing.T) {
	resp := &llm.CompletionResponse{
		Content:  "the message is probably fine",
		LogProbs: labeledSteps(0.1, 0.9),
	}

	_, err := ParseVerdict(resp)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Reason, "no yes/no label")
}

// "yes" embedded mid-sentence is not a label; only the tag or a bare line
// counts.
func TestParseVerdictEmbeddedWordIsNotLabel(t *testing.T) {
	resp := &llm.CompletionResponse{
		Content:  "yes it could be risky but also no",
		LogProbs: labeledSteps(0.5, 0.5),
	}

	_, err := ParseVerdict(resp)
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestParseVerdictMissingLogProbs(t *testing.T) {
	resp := &llm.CompletionResponse{Content: "<score> no </score>"}

	_, err := ParseVerdict(resp)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Reason, "no logprobs")
}

func TestParseVerdictNilResponse(t *testing.T) {
	_, err := ParseVerdict(nil)
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

// The textual label and the calibrated confidence are independent signals:
// a risky label with low risky mass keeps both, so thresholding can still
// veto the block.
func TestParseVerdictLabelConfidenceDisagreement(t *testing.T) {
	resp := &llm.CompletionResponse{
		Content:  "<score> yes </score>",
		LogProbs: labeledSteps(0.1, 0.9),
	}

	verdict, err := ParseVerdict(resp)
	require.NoError(t, err)
	assert.True(t, verdict.IsRisky)
	assert.InDelta(t, 0.1, verdict.RiskyConfidence, 1e-9)
	assert.InDelta(t, 0.9, verdict.SafeConfidence, 1e-9)
}

// Sub-token pieces matching a label accumulate across steps.
func TestLabelProbabilitiesAggregatesAcrossSteps(t *testing.T) {
	steps := []llm.LogProbStep{
		{TopLogProbs: []llm.TokenLogProb{{Token: "Yes", LogProb: math.Log(0.4)}}},
		{TopLogProbs: []llm.TokenLogProb{
			{Token: " yes ", LogProb: math.Log(0.4)},
			{Token: "no", LogProb: math.Log(0.2)},
		}},
	}

	pSafe, pRisky := labelProbabilities(steps)
	assert.InDelta(t, 0.8, pRisky, 1e-9)
	assert.InDelta(t, 0.2, pSafe, 1e-9)
}

// A label absent from every top-K still gets floored mass instead of -Inf.
func TestLabelProbabilitiesMissingLabelFloored(t *testing.T) {
	steps := []llm.LogProbStep{
		{TopLogProbs: []llm.TokenLogProb{{Token: "yes", LogProb: math.Log(0.99)}}},
	}

	pSafe, pRisky := labelProbabilities(steps)
	assert.False(t, math.IsNaN(pSafe))
	assert.Greater(t, pRisky, 0.999)
}

func TestParseVerdictRoundsToFourDecimals(t *testing.T) {
	resp := &llm.CompletionResponse{
		Content:  "<score> no </score>",
		LogProbs: labeledSteps(1.0/3.0, 2.0/3.0),
	}

	verdict, err := ParseVerdict(resp)
	require.NoError(t, err)
	assert.Equal(t, 0.3333, verdict.RiskyConfidence)
	assert.Equal(t, 0.6667, verdict.SafeConfidence)
}

func TestParseErrorMessageTruncatesContent(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	err := &ParseError{Reason: "no yes/no label found", Content: string(long)}
	assert.Less(t, len(err.Error()), 200)
	assert.True(t, errors.As(error(err), new(*ParseError)))
}
