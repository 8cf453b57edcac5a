package core

import (
	"errors"
	"math"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
)

// Normalize lowercases and trims free text before it is matched.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var (
	digitsRe      = regexp.MustCompile(`\d+`)
	numberWordsRe = regexp.MustCompile(`\b(one|two|three|four|five|six|seven|eight|nine|ten)\b`)
)

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// ExtractDuration parses a duration in days.  Digits win over number words,
// which win over idioms such as "yesterday".
func ExtractDuration(text string) (int, bool) {
	text = Normalize(text)

	if m := digitsRe.FindString(text); m != "" {
		n, err := strconv.Atoi(m)
		if errors.Is(err, strconv.ErrRange) {
			// Too large for any case range; the value still counts as given.
			return math.MaxInt, true
		}
		if err != nil {
			return 0, false
		}
		return n, true
	}

	if m := numberWordsRe.FindString(text); m != "" {
		return numberWords[m], true
	}

	switch {
	case strings.Contains(text, "day before yesterday"):
		return 2, true
	case strings.Contains(text, "yesterday"):
		return 1, true
	case strings.Contains(text, "today") && strings.Contains(text, "since"):
		return 1, true
	}
	return 0, false
}

var (
	exitTokens    = []string{"exit", "quit", "bye"}
	consentTokens = []string{"yes", "y", "sure", "ok", "yes please", "yesplease", "ofcourse", "off course"}
)

// IsExit reports whether the utterance ends the session.
func IsExit(utterance string) bool {
	return oneOf(Normalize(utterance), exitTokens)
}

// IsConsent reports whether the answer accepts an offer.
func IsConsent(answer string) bool {
	return oneOf(Normalize(answer), consentTokens)
}

func oneOf(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Selector picks one phrasing out of several equivalent ones.
type Selector func(options []string) string

// RandomPhrase varies the wording between turns.
func RandomPhrase(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[rand.IntN(len(options))]
}

// FirstPhrase always returns the first option.
func FirstPhrase(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[0]
}
