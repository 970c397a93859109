package classifier

import "strings"

// VerdictPolicy turns a free-text model answer into a yes/no verdict.
type VerdictPolicy func(response string) bool

// ContainsYes is affirmative when the trimmed, lowercased response
// contains "yes" anywhere. "definitely not yes" is therefore affirmative.
func ContainsYes(response string) bool {
	return strings.Contains(strings.ToLower(strings.TrimSpace(response)), "yes")
}

// StartsWithYes is a stricter policy that only accepts answers opening with "yes".
func StartsWithYes(response string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(response)), "yes")
}
