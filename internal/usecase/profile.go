// File: internal/usecase/profile.go
package usecase

import "regexp"

var namePattern = regexp.MustCompile(`(?i)my name is ([\p{L}\p{N}_]+)`)

// ExtractProfile pulls opportunistic profile facts out of a user utterance.
// It is a heuristic: only "my name is <word>" is recognised, yielding "name".
func ExtractProfile(text string) map[string]string {
	facts := make(map[string]string)
	if m := namePattern.FindStringSubmatch(text); m != nil {
		facts["name"] = m[1]
	}
	return facts
}
