package rules

import "strings"

// Decision is the outcome of a navigation check.
type Decision int

const (
	// Deny blocks the navigation.
	Deny Decision = iota
	// Allow lets the navigation proceed.
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Decide is the navigation gate. A non-empty allow-list is consulted alone:
// the URL must contain one of its entries. Otherwise any denial entry found
// in the URL denies it. Matching is case-sensitive substring containment.
// Decide never performs I/O.
func Decide(candidateURL string, rs *RuleSet, allow []string) Decision {
	if len(allow) > 0 {
		if containsAny(candidateURL, allow) {
			return Allow
		}
		return Deny
	}
	if rs != nil && containsAny(candidateURL, rs.denials) {
		return Deny
	}
	return Allow
}

func containsAny(s string, entries []string) bool {
	for _, e := range entries {
		if strings.Contains(s, e) {
			return true
		}
	}
	return false
}
