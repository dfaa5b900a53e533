package decision

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Raw upstream output is loosely structured JSON. ValidateDecisionArray
// walks it with gjson before the typed unmarshal so error messages point
// at the offending entry instead of a generic decode failure.

func ValidateDecisionArray(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("decision payload is empty")
	}
	if !gjson.Valid(raw) {
		return fmt.Errorf("decision payload is not valid json")
	}
	parsed := gjson.Parse(raw)
	if !parsed.IsArray() {
		return fmt.Errorf("decision payload must be a json array")
	}
	count, schemaErr := walkDecisions(parsed)
	switch {
	case schemaErr != nil:
		return schemaErr
	case count == 0:
		return fmt.Errorf("decision array is empty")
	default:
		return nil
	}
}

func walkDecisions(parsed gjson.Result) (count int, schemaErr error) {
	parsed.ForEach(func(_, value gjson.Result) bool {
		count++
		if err := validateDecisionNode(count, value); err != nil {
			schemaErr = err
			return false
		}
		return true
	})
	return
}

func validateDecisionNode(idx int, value gjson.Result) error {
	if !value.IsObject() {
		return fmt.Errorf("decision #%d must be an object", idx)
	}
	action := Action(strings.ToLower(strings.TrimSpace(value.Get("action").String())))
	if action == "" {
		return fmt.Errorf("decision #%d missing action", idx)
	}
	if !validActions[action] {
		return fmt.Errorf("decision #%d has unknown action %q", idx, action)
	}
	if strings.TrimSpace(value.Get("symbol").String()) == "" {
		return fmt.Errorf("decision #%d missing symbol", idx)
	}
	switch action {
	case ActionOpen, ActionIncrease:
		dir := strings.ToLower(strings.TrimSpace(value.Get("direction").String()))
		if dir != "long" && dir != "short" {
			return fmt.Errorf("decision #%d requires direction long|short, got %q", idx, dir)
		}
		if value.Get("position_size_pct").Float() <= 0 {
			return fmt.Errorf("decision #%d requires position_size_pct > 0", idx)
		}
		if conf := value.Get("confidence").Float(); conf < 0 || conf > 1 {
			return fmt.Errorf("decision #%d confidence must be in [0, 1]", idx)
		}
	}
	return nil
}

// ParseDecisions validates and unmarshals a raw decision array. Every
// entry also passes through Decision.Validate so range errors surface
// before anything reaches the risk manager.
func ParseDecisions(raw string) ([]Decision, error) {
	if err := ValidateDecisionArray(raw); err != nil {
		return nil, err
	}
	var decisions []Decision
	if err := json.Unmarshal([]byte(raw), &decisions); err != nil {
		return nil, fmt.Errorf("decoding decision array failed: %w", err)
	}
	for i := range decisions {
		decisions[i].Action = Action(strings.ToLower(string(decisions[i].Action)))
		decisions[i].Symbol = strings.ToUpper(strings.TrimSpace(decisions[i].Symbol))
		if err := decisions[i].Validate(); err != nil {
			return nil, fmt.Errorf("decision #%d: %w", i+1, err)
		}
	}
	return decisions, nil
}
