// Package textproc implements the transcript text post-processing shared by
// every provider (C6): stripping the language-tag prefix Qwen3-ASR emits,
// collapsing whitespace, and deduplicating the overlap between consecutive
// segments. Every transformation here is total and idempotent, following
// the regexp-pipeline style the teacher uses for transcript cleanup.
package textproc

import (
	"regexp"
	"sort"
	"strings"
)

// languageAllowList is the closed set of language names (plus the null
// sentinels) the upstream Qwen3-ASR model concatenates directly onto the
// transcript as "language <Name>". See spec GLOSSARY.
var languageAllowList = []string{
	"English", "Chinese", "Japanese", "Korean", "French", "German", "Spanish",
	"Portuguese", "Russian", "Italian", "Dutch", "Turkish", "Arabic", "Polish",
	"Swedish", "Norwegian", "Danish", "Finnish", "Hungarian", "Czech",
	"Romanian", "Bulgarian", "Greek", "Serbian", "Croatian", "Slovak",
	"Slovenian", "Ukrainian", "Catalan", "Vietnamese", "Thai", "Indonesian",
	"Malay", "Hindi", "Tamil", "Telugu", "Bengali", "Urdu", "Persian",
	"Hebrew", "Cantonese", "Yue", "None", "null",
}

var (
	lineStartPrefixPattern  = regexp.MustCompile(`(?mi)^language\s*[:：]?\s*(?:` + namesAlternation() + `)`)
	midSentencePrefixPattern = regexp.MustCompile(`(?i)([。！？.!?])\s*language\s*[:：]?\s*(?:` + namesAlternation() + `)`)
	multiSpacePattern       = regexp.MustCompile(`[ \t]{2,}`)
)

// namesAlternation builds the regex alternation for the allow-list, longest
// name first so the alternation can't short-circuit on a shorter name that
// happens to be a prefix of a longer one.
func namesAlternation() string {
	names := make([]string, len(languageAllowList))
	copy(names, languageAllowList)
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	for i, n := range names {
		names[i] = regexp.QuoteMeta(n)
	}
	return strings.Join(names, "|")
}

// StripLanguagePrefix removes the "language <Name>" tag the Qwen3-ASR
// engine concatenates onto raw output, in two passes: once for an
// occurrence at the start of any line, and repeatedly for occurrences
// immediately following a sentence terminator (the terminator itself is
// preserved). Finally collapses runs of spaces/tabs and trims.
func StripLanguagePrefix(text string) string {
	if text == "" {
		return text
	}

	text = lineStartPrefixPattern.ReplaceAllString(text, "")

	for {
		replaced := midSentencePrefixPattern.ReplaceAllString(text, "$1")
		if replaced == text {
			break
		}
		text = replaced
	}

	text = multiSpacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// minOverlapCodepoints is the minimum suffix/prefix match length (in
// Unicode code points) DedupOverlap will act on.
const minOverlapCodepoints = 4

// DedupOverlap removes from current the longest prefix that duplicates the
// suffix of previous, when that overlap is at least 4 Unicode code points
// and covers more than half of current. previous is trimmed; current is
// left-trimmed before comparison. Returns current unchanged if no
// qualifying overlap is found.
func DedupOverlap(previous, current string) string {
	previous = strings.TrimSpace(previous)
	current = strings.TrimLeft(current, " \t\n\r")

	prevRunes := []rune(previous)
	curRunes := []rune(current)

	maxLen := len(prevRunes)
	if len(curRunes) < maxLen {
		maxLen = len(curRunes)
	}

	lowerBound := len(curRunes)/2 + 1
	if lowerBound < minOverlapCodepoints {
		lowerBound = minOverlapCodepoints
	}
	if lowerBound > maxLen {
		return current
	}

	for l := maxLen; l >= lowerBound; l-- {
		suffix := prevRunes[len(prevRunes)-l:]
		prefix := curRunes[:l]
		if runesEqual(suffix, prefix) {
			return strings.TrimLeft(string(curRunes[l:]), " \t\n\r")
		}
	}

	return current
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
