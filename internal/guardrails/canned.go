package guardrails

// Fixed user-facing responses. Raw classifier reasoning must never reach the
// end user, so blocked turns answer with one of these.
const (
	// BlockedMessage answers a turn blocked on a risk violation.
	BlockedMessage = "I can't answer that. This query appears to violate our content policy. " +
		"Please rephrase your question and try again."

	// UnavailableMessage answers a turn blocked because the safety service
	// could not be reached.
	UnavailableMessage = "I'm unable to process your request at this time due to a service issue. " +
		"Please try again later."
)

// UserMessage returns the canned response for a blocking decision, or
// ("", false) when the turn may proceed.
func UserMessage(d Decision) (string, bool) {
	switch d.Outcome {
	case OutcomeUnsafe:
		return BlockedMessage, true
	case OutcomeUnavailable:
		return UnavailableMessage, true
	default:
		return "", false
	}
}
