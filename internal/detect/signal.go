package detect

import (
	"regexp"
	"strings"
)

// Kind is the predicate type of a Signal.
type Kind int

const (
	// KindSubstring matches when the single term occurs in the text.
	KindSubstring Kind = iota
	// KindAll matches when every term occurs in the text.
	KindAll
	// KindRegex matches when the pattern finds a match in the text.
	KindRegex
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindSubstring:
		return "substring"
	case KindAll:
		return "all"
	case KindRegex:
		return "regex"
	default:
		return "unknown"
	}
}

// Signal is one named piece of evidence for the integration.
// Terms and Pattern are expected in lower case.
//
// Design decision: signals are data, not functions. The table can be listed
// by name (version, reports) and a hit is counted once per signal however
// often its terms occur, which keeps the score a count of distinct evidence.
type Signal struct {
	// Name is the stable identifier reported in results.
	Name string

	// Description explains what the signal looks for.
	Description string

	// Kind selects how Terms or Pattern are evaluated.
	Kind Kind

	// Terms are the substrings for KindSubstring and KindAll.
	Terms []string

	// Pattern is the expression for KindRegex.
	Pattern *regexp.Regexp
}

// Match evaluates the signal against already lower-cased text.
func (s Signal) Match(lowered string) bool {
	switch s.Kind {
	case KindSubstring, KindAll:
		if len(s.Terms) == 0 {
			return false
		}
		for _, term := range s.Terms {
			if !strings.Contains(lowered, term) {
				return false
			}
		}
		return true
	case KindRegex:
		return s.Pattern != nil && s.Pattern.MatchString(lowered)
	default:
		return false
	}
}

func substring(name, description, term string) Signal {
	return Signal{Name: name, Description: description, Kind: KindSubstring, Terms: []string{term}}
}

func all(name, description string, terms ...string) Signal {
	return Signal{Name: name, Description: description, Kind: KindAll, Terms: terms}
}

func pattern(name, description, expr string) Signal {
	return Signal{Name: name, Description: description, Kind: KindRegex, Pattern: regexp.MustCompile(expr)}
}
