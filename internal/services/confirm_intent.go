package services

import (
	"strings"
)

// ConfirmIntent is the reading of a preceptor reply to a confirmation prompt.
type ConfirmIntent int

const (
	IntentAmbiguous ConfirmIntent = iota
	IntentConfirm
	IntentRevise
)

var reviseMarkers = []string{
	"change", "revise", "different", "no", "not", "isn't", "wasn't", "doesn't",
	"incorrect", "inaccurate", "wrong", "instead",
}

var confirmMarkers = []string{
	"yes", "yep", "yeah", "correct", "good", "accurate", "fine", "ok", "okay",
	"looks good", "sounds good", "that's right", "perfect", "confirm",
}

// classifyConfirmIntent reads a reply to "does this capture your feedback?".
// Revision markers win over confirmation markers so "no, that looks wrong"
// reopens collection rather than confirming.
func classifyConfirmIntent(content string) ConfirmIntent {
	s := strings.ToLower(strings.TrimSpace(content))
	if s == "" {
		return IntentAmbiguous
	}

	for _, marker := range reviseMarkers {
		if containsWord(s, marker) {
			return IntentRevise
		}
	}
	for _, marker := range confirmMarkers {
		if containsWord(s, marker) {
			return IntentConfirm
		}
	}
	return IntentAmbiguous
}

// containsWord matches marker on word boundaries so "no" does not fire
// inside "noticed" and "ok" does not fire inside "broke".
func containsWord(s, marker string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], marker)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(marker)
		beforeOK := start == 0 || !isWordChar(s[start-1])
		afterOK := end == len(s) || !isWordChar(s[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
		if idx >= len(s) {
			return false
		}
	}
}

func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '\''
}
