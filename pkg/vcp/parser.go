package vcp

import (
	"regexp"
	"strconv"
	"strings"
)

// Rule extracts the raw value token from tool output.
type Rule interface {
	Name() string
	Match(text string) (token string, ok bool)
}

// RegexpRule matches with a regular expression; the first capture group is
// the value token.
type RegexpRule struct {
	RuleName string
	Pattern  *regexp.Regexp
}

func (r RegexpRule) Name() string { return r.RuleName }

func (r RegexpRule) Match(text string) (string, bool) {
	m := r.Pattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

const numberToken = `(0[xX][0-9a-fA-F]+|[0-9]+)`

// DefaultRules returns the built-in rules in precedence order:
// labelled "current value", terse "VCP <addr> <value> [max]" dumps, then
// generic value=/val= labels.
func DefaultRules() []Rule {
	return []Rule{
		RegexpRule{
			RuleName: "current",
			Pattern:  regexp.MustCompile(`(?i)\bcurrent(?:\s+value)?\s*[:=]\s*` + numberToken + `\b`),
		},
		RegexpRule{
			RuleName: "vcp-dump",
			Pattern:  regexp.MustCompile(`(?i)\bvcp\s+(?:0x)?[0-9a-f]+\s+` + numberToken + `\b`),
		},
		RegexpRule{
			RuleName: "value",
			Pattern:  regexp.MustCompile(`(?i)\b(?:value|val)\s*=\s*` + numberToken + `\b`),
		},
	}
}

// Parser extracts a register value from arbitrary tool output. The first
// rule that matches decides; later rules are not consulted even if the
// matched token turns out to be invalid.
type Parser struct {
	Rules []Rule
}

// NewParser returns a parser with the given rules, or the default ones when
// none are given.
func NewParser(rules ...Rule) *Parser {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Parser{Rules: rules}
}

// Parse returns the value and true, or false when the text holds no
// readable value.
func (p *Parser) Parse(text string) (Value, bool) {
	for _, r := range p.Rules {
		tok, ok := r.Match(text)
		if !ok {
			continue
		}
		v, err := parseToken(tok)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

func parseToken(tok string) (Value, error) {
	base := 10
	if strings.HasPrefix(tok, "0x") || strings.HasPrefix(tok, "0X") {
		base = 16
		tok = tok[2:]
	}
	v, err := strconv.ParseUint(tok, base, 31)
	if err != nil {
		return 0, err
	}
	return Value(v), nil
}
