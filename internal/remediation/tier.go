package remediation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Tier is a remediation aggressiveness level.
type Tier int

const (
	TierNone Tier = iota
	TierQuick
	TierStandard
	TierDeep
)

func (t Tier) String() string {
	switch t {
	case TierQuick:
		return "Quick"
	case TierStandard:
		return "Standard"
	case TierDeep:
		return "Deep"
	default:
		return "None"
	}
}

func (t Tier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Tier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "None" || s == "" {
		*t = TierNone
		return nil
	}
	parsed, err := ParseTier(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTier accepts quick, standard or deep in any case.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quick":
		return TierQuick, nil
	case "standard":
		return TierStandard, nil
	case "deep":
		return TierDeep, nil
	default:
		return TierNone, fmt.Errorf("unknown tier %q (must be quick, standard or deep)", s)
	}
}

// Thresholds decide when escalation moves up a tier.
type Thresholds struct {
	Standard int
	Deep     int
}

// DefaultThresholds are 2 consecutive failures for Standard and 3 for Deep.
var DefaultThresholds = Thresholds{Standard: 2, Deep: 3}

// SelectTier maps consecutive failures to a tier. It is non-decreasing in
// consecutiveFailures.
func SelectTier(consecutiveFailures int, th Thresholds) Tier {
	switch {
	case consecutiveFailures < th.Standard:
		return TierQuick
	case consecutiveFailures < th.Deep:
		return TierStandard
	default:
		return TierDeep
	}
}

// State is the escalator state.
type State int

const (
	StateHealthy State = iota
	StateRepairing
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "Healthy"
	case StateRepairing:
		return "Repairing"
	case StateExhausted:
		return "Exhausted"
	default:
		return "Unknown"
	}
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch str {
	case "Healthy":
		*s = StateHealthy
	case "Repairing":
		*s = StateRepairing
	case "Exhausted":
		*s = StateExhausted
	default:
		return fmt.Errorf("unknown state %q", str)
	}
	return nil
}
