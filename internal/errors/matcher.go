package errors

import "strings"

// PatternMatcher matches error messages to kinds using substrings.
type PatternMatcher interface {
	Match(errorMsg string) Kind
}

// NewPatternMatcher creates a PatternMatcher with the predefined patterns.
func NewPatternMatcher() PatternMatcher {
	return &patternMatcher{
		order: []Kind{KindNotFound, KindAccessDenied, KindAlreadyExists, KindCorrupt},
		patterns: map[Kind][]string{
			KindNotFound: {
				"no such file or directory",
				"file not found",
				"cannot find the file",
				"cannot find the path",
				"path does not exist",
			},
			KindAccessDenied: {
				"permission denied",
				"access is denied",
				"access denied",
				"operation not permitted",
				"being used by another process",
			},
			KindAlreadyExists: {
				"file exists",
				"already exists",
			},
			KindCorrupt: {
				"image: unknown format",
				"invalid jpeg",
				"not a png file",
				"unexpected eof",
			},
		},
	}
}

var defaultMatcher = NewPatternMatcher()

type patternMatcher struct {
	order    []Kind
	patterns map[Kind][]string
}

// Match returns the first kind whose patterns occur in errorMsg.
func (m *patternMatcher) Match(errorMsg string) Kind {
	lowerMsg := strings.ToLower(errorMsg)

	for _, kind := range m.order {
		for _, pattern := range m.patterns[kind] {
			if strings.Contains(lowerMsg, pattern) {
				return kind
			}
		}
	}

	return KindUnknown
}
