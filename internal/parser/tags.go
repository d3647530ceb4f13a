// Package parser reads the configuration tags players type into a controller's
// custom data or a faction's private notes.
package parser

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Tags are matched case-insensitively anywhere in the text.
const (
	TagForceRealistic = "force-realistic-thrust"
	TagPercentPrefix  = "realistic-thrust-"
	TagPercentSuffix  = "%"
	TagDisable        = "disable-realistic-thrust"
)

// ErrMalformedPercent is returned when a percentage tag's number does not parse.
var ErrMalformedPercent = errors.New("malformed realistic-thrust percentage")

// OverrideKind is which tag produced an override.
type OverrideKind uint8

const (
	OverrideNone OverrideKind = iota
	OverrideFull
	OverridePercent
	OverrideDisabled
)

func (k OverrideKind) String() string {
	switch k {
	case OverrideFull:
		return "full"
	case OverridePercent:
		return "percent"
	case OverrideDisabled:
		return "disabled"
	default:
		return "none"
	}
}

// Override is a forced realism level.
type Override struct {
	Kind   OverrideKind
	Amount float64
}

// Active reports whether a tag was recognized.
func (o Override) Active() bool {
	return o.Kind != OverrideNone
}

// ParseOverride looks for the full, percentage and disable tags, in that order.
// A malformed percentage is reported and yields no override, even when a valid
// percentage or disable tag follows it. Only the force tag is checked first.
func ParseOverride(text string) (Override, error) {
	if text == "" {
		return Override{}, nil
	}
	lower := strings.ToLower(text)

	if strings.Contains(lower, TagForceRealistic) {
		return Override{Kind: OverrideFull, Amount: 1}, nil
	}

	amount, found, err := findPercent(lower)
	if err != nil {
		return Override{}, err
	}
	if found {
		return Override{Kind: OverridePercent, Amount: amount}, nil
	}

	if strings.Contains(lower, TagDisable) {
		return Override{Kind: OverrideDisabled, Amount: 0}, nil
	}
	return Override{}, nil
}

// HasForceRealistic reports whether text carries the force tag. Factions use it
// in their private notes to opt out of the NPC classification.
func HasForceRealistic(text string) bool {
	return text != "" && strings.Contains(strings.ToLower(text), TagForceRealistic)
}

// findPercent returns the first "realistic-thrust-<N>%" amount as a fraction in [0,1].
func findPercent(lower string) (float64, bool, error) {
	rest := lower
	for {
		i := strings.Index(rest, TagPercentPrefix)
		if i < 0 {
			return 0, false, nil
		}
		rest = rest[i+len(TagPercentPrefix):]

		end := strings.Index(rest, TagPercentSuffix)
		if end < 0 {
			return 0, false, nil
		}
		number := rest[:end]
		if strings.ContainsAny(number, "\r\n") {
			// the % belongs to another line
			continue
		}

		number = strings.TrimSpace(number)
		n, err := strconv.ParseFloat(number, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false, fmt.Errorf("%w: %q", ErrMalformedPercent, number)
		}
		return math.Min(math.Max(n/100, 0), 1), true, nil
	}
}
