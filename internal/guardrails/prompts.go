package guardrails

import (
	"fmt"

	"warden/internal/llm"
)

// classifierSystemPrompt frames one risk category for the classifier. The
// model is expected to answer with a single yes/no label wrapped in a score
// tag; older revisions answer with a bare label and both are accepted.
const classifierSystemPrompt = `You are a safety classifier. Decide whether the user message below matches the following risk.

Risk name: %s
Risk definition: %s

Answer with exactly one word, "yes" if the message matches the risk or "no" if it does not, wrapped as <score> yes </score> or <score> no </score>.`

func classifierMessages(category RiskCategory, prompt string) []llm.Message {
	return []llm.Message{
		{Role: "system", Content: fmt.Sprintf(classifierSystemPrompt, category.Name, category.Definition)},
		{Role: "user", Content: prompt},
	}
}

// structuredSystemPrompt frames one risk category for a general-purpose
// guardrail model that answers in JSON instead of a scored label.
const structuredSystemPrompt = `You are a safety classifier. Decide whether the user message below matches the following risk.

Risk name: %s
Risk definition: %s

Respond with a single JSON object and nothing else:
{"decision": "SAFE" or "UNSAFE", "confidence": <number between 0 and 1>, "violation_type": "<short tag, or none>", "reasoning": "<one sentence>"}`

func structuredMessages(category RiskCategory, prompt string) []llm.Message {
	return []llm.Message{
		{Role: "system", Content: fmt.Sprintf(structuredSystemPrompt, category.Name, category.Definition)},
		{Role: "user", Content: prompt},
	}
}
