// Package redact provides a fluent and composable pipeline for scrubbing
// log messages based on configurable rules using bitwise filter flags,
// transforms and regular expression masks.
package redact

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// Filter flags for character matching
const (
	FilterNonPrintable uint64 = 1 << iota // Matches runes not classified as printable by strconv.IsPrint
	FilterControl                         // Matches control characters (unicode.IsControl)
	FilterWhitespace                      // Matches whitespace characters (unicode.IsSpace)
	FilterShellSpecial                    // Matches common shell metacharacters: '`', '$', ';', '|', '&', '>', '<', '(', ')', '#'
)

// Transform flags for character transformation
const (
	TransformStrip      uint64 = 1 << iota // Removes the character
	TransformHexEncode                     // Encodes the character's UTF-8 bytes as "<XXYY>"
	TransformJSONEscape                    // Escapes the character with JSON-style backslashes (e.g., '\n', '\u0000')
	TransformMask                          // Replaces the character with '*'
)

// PolicyPreset defines pre-configured redaction policies
type PolicyPreset string

const (
	PolicyRaw   PolicyPreset = "raw"   // Raw is a no-op (passthrough)
	PolicyJSON  PolicyPreset = "json"  // Policy for messages embedded in JSON output
	PolicyTxt   PolicyPreset = "txt"   // Policy for messages written to text log files
	PolicyShell PolicyPreset = "shell" // Policy for messages echoed into shell contexts
)

// rule represents a single character-level redaction rule
type rule struct {
	filter    uint64
	transform uint64
}

// policyRules contains pre-configured rules for each policy
var policyRules = map[PolicyPreset][]rule{
	PolicyRaw:   {},
	PolicyTxt:   {{filter: FilterNonPrintable, transform: TransformHexEncode}},
	PolicyJSON:  {{filter: FilterControl, transform: TransformJSONEscape}},
	PolicyShell: {{filter: FilterShellSpecial | FilterWhitespace, transform: TransformStrip}},
}

// filterCheckers maps individual filter flags to their check functions
var filterCheckers = map[uint64]func(rune) bool{
	FilterNonPrintable: func(r rune) bool { return !strconv.IsPrint(r) },
	FilterControl:      unicode.IsControl,
	FilterWhitespace:   unicode.IsSpace,
	FilterShellSpecial: func(r rune) bool {
		switch r {
		case '`', '$', ';', '|', '&', '>', '<', '(', ')', '#':
			return true
		}
		return false
	},
}

// Pipeline applies mask patterns followed by character rules to a
// message. Configure it up front, then share it freely; Process
// allocates its own working buffer, so concurrent use is safe.
type Pipeline struct {
	rules    []rule
	patterns []maskPattern
}

// maskPattern replaces every regexp match with a fixed replacement
type maskPattern struct {
	re          *regexp.Regexp
	replacement string
}

// New creates a new Pipeline instance
func New() *Pipeline {
	return &Pipeline{}
}

// Rule adds a custom rule to the pipeline (appended, earliest rule applies first)
func (p *Pipeline) Rule(filter uint64, transform uint64) *Pipeline {
	p.rules = append(p.rules, rule{filter: filter, transform: transform})
	return p
}

// Policy applies a pre-configured policy to the pipeline (appended)
func (p *Pipeline) Policy(preset PolicyPreset) *Pipeline {
	if rules, ok := policyRules[preset]; ok {
		p.rules = append(p.rules, rules...)
	}
	return p
}

// MaskPattern masks every match of the expression with the given
// replacement. Patterns run before character rules, in the order
// they were added.
func (p *Pipeline) MaskPattern(re *regexp.Regexp, replacement string) *Pipeline {
	if re != nil {
		p.patterns = append(p.patterns, maskPattern{re: re, replacement: replacement})
	}
	return p
}

// MaskSecrets masks common credential shapes: bearer tokens, key=value
// passwords and long hex strings.
func (p *Pipeline) MaskSecrets() *Pipeline {
	return p.
		MaskPattern(regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/-]+=*`), "bearer ****").
		MaskPattern(regexp.MustCompile(`(?i)(password|passwd|secret|token|apikey|api_key)\s*[:=]\s*\S+`), "$1=****").
		MaskPattern(regexp.MustCompile(`\b[0-9a-fA-F]{32,}\b`), "****")
}

// Process applies all configured patterns and rules to the message.
// It implements the logger's redaction hook contract and never
// returns an error.
func (p *Pipeline) Process(message string) (string, error) {
	for _, mp := range p.patterns {
		message = mp.re.ReplaceAllString(message, mp.replacement)
	}
	if len(p.rules) == 0 {
		return message, nil
	}

	buf := make([]byte, 0, len(message)+16)
	for _, r := range message {
		matched := false
		// Check rules in order (first match wins)
		for _, rl := range p.rules {
			if matchesFilter(r, rl.filter) {
				applyTransform(&buf, r, rl.transform)
				matched = true
				break
			}
		}
		if !matched {
			buf = utf8.AppendRune(buf, r)
		}
	}
	return string(buf), nil
}

// matchesFilter checks if a rune matches any filter in the mask
func matchesFilter(r rune, filterMask uint64) bool {
	for flag, checker := range filterCheckers {
		if (filterMask&flag) != 0 && checker(r) {
			return true
		}
	}
	return false
}

// applyTransform applies the specified transform to the buffer
func applyTransform(buf *[]byte, r rune, transformMask uint64) {
	switch {
	case (transformMask & TransformStrip) != 0:
		// Do nothing (strip)

	case (transformMask & TransformMask) != 0:
		*buf = append(*buf, '*')

	case (transformMask & TransformHexEncode) != 0:
		var runeBytes [utf8.UTFMax]byte
		n := utf8.EncodeRune(runeBytes[:], r)
		*buf = append(*buf, '<')
		*buf = append(*buf, hex.EncodeToString(runeBytes[:n])...)
		*buf = append(*buf, '>')

	case (transformMask & TransformJSONEscape) != 0:
		switch r {
		case '\n':
			*buf = append(*buf, '\\', 'n')
		case '\r':
			*buf = append(*buf, '\\', 'r')
		case '\t':
			*buf = append(*buf, '\\', 't')
		case '\b':
			*buf = append(*buf, '\\', 'b')
		case '\f':
			*buf = append(*buf, '\\', 'f')
		case '"':
			*buf = append(*buf, '\\', '"')
		case '\\':
			*buf = append(*buf, '\\', '\\')
		default:
			if r < 0x20 || r == 0x7f {
				*buf = append(*buf, fmt.Sprintf("\\u%04x", r)...)
			} else {
				*buf = utf8.AppendRune(*buf, r)
			}
		}
	}
}

// NeedsQuotes reports whether a value must be quoted in text output
func NeedsQuotes(s string) bool {
	if len(s) == 0 {
		return true
	}
	for _, r := range s {
		if unicode.IsSpace(r) {
			return true
		}
		switch r {
		case '"', '\'', '\\', '$', '`', '!', '&', '|', ';',
			'(', ')', '<', '>', '*', '?', '[', ']', '{', '}',
			'~', '#', '%', '=', '\n', '\r', '\t':
			return true
		}
		if !unicode.IsPrint(r) {
			return true
		}
	}
	return false
}
