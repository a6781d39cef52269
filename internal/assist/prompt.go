package assist

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// suggestionSchema reflects the Suggestion type into a JSON schema for
// the model's structured-output constraint.
func suggestionSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}
	return reflector.Reflect(&Suggestion{})
}

func buildSystemPrompt(step int) string {
	return fmt.Sprintf(`You are a thermostat scheduling assistant. Turn a plain-English description of a household's weekly routine into an occupancy schedule.

Rules:
- Days are tagged MON, TUE, WED, THU, FRI, SAT, SUN. Omit days that should stay absent all day.
- Each band has a start and end in 24h "HH:MM" form, with start strictly before end, both multiples of %d minutes.
- Bands within one day must not overlap. Back-to-back bands are allowed.
- setpoint_type is "present" when someone is home and the zone should be at comfort temperature, "absent" otherwise. Minutes not covered by any band are implicitly absent, so only emit "absent" bands when the user explicitly asks for them.
- A band must not end at exactly 24:00; use 23:%02d as the latest end.
- If the description is too vague to schedule, set clarification to ask for the missing detail and return an empty days list.

Return valid JSON matching the required schema.`, step, 60-step)
}

func buildUserPrompt(description string) string {
	return fmt.Sprintf("Weekly routine: %s", description)
}

func parseSuggestion(content string) (*Suggestion, error) {
	var s Suggestion
	if err := json.Unmarshal([]byte(content), &s); err != nil {
		return nil, fmt.Errorf("parsing suggestion: %w", err)
	}
	return &s, nil
}
