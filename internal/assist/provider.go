package assist

import "context"

// Provider turns a plain-English weekly routine into a schedule
// suggestion.
type Provider interface {
	SuggestWeek(ctx context.Context, description string, step int) (*Suggestion, error)
}
