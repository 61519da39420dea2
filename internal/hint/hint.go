// Package hint maps known failure signatures in a job log to remediation text.
package hint

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidRule is returned when a loaded rule has no patterns or no message.
var ErrInvalidRule = errors.New("hint: rule needs at least one pattern and a message")

// Rule matches when any of its patterns occurs in the log.
type Rule struct {
	Name     string   `yaml:"name"`
	Patterns []string `yaml:"patterns"`
	Message  string   `yaml:"message"`
}

// Matches reports whether log contains one of the rule patterns.
func (r Rule) Matches(log string) bool {
	for _, p := range r.Patterns {
		if p != "" && strings.Contains(log, p) {
			return true
		}
	}
	return false
}

// DefaultRules returns the built-in rules in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "missing-icu",
			Patterns: []string{"Couldn't find a valid ICU package installed", "dotnet-missing-libicu"},
			Message: "Your container is missing ICU. Fix Dockerfile: add `libicu-dev` (or `libicu72`) " +
				"to apt-get install, then redeploy.",
		},
		{
			Name:     "quality-unavailable",
			Patterns: []string{"Quality not found", "Unable to find requested quality"},
			Message: "Requested quality isn't available for this VOD. Try `1080p` instead of `1080p60`, " +
				"or leave quality on Auto/Best.",
		},
		{
			Name:     "rate-limited",
			Patterns: []string{"429", "Too Many Requests"},
			Message:  "Twitch is rate limiting you. Lower threads (2), and consider setting bandwidth.",
		},
		{
			Name:     "scratch-full",
			Patterns: []string{"No space left on device", "There is not enough space on the disk", "Not enough free space"},
			Message: "The download or temp directory ran out of space. Delete finished jobs, " +
				"use shorter Begin/End chunks, or lower the quality.",
		},
	}
}

// Classifier evaluates rules top to bottom and returns the first match.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a Classifier with the given rules.
// A nil slice yields the built-in rules.
func NewClassifier(rules []Rule) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Rules returns a copy of the rule table.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Classify returns the message of the first matching rule, or "".
func (c *Classifier) Classify(log string) string {
	if log == "" {
		return ""
	}
	for _, r := range c.rules {
		if r.Matches(log) {
			return r.Message
		}
	}
	return ""
}

// ruleFile is the on-disk format of extra rules.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads extra rules from a YAML file of the form:
//
//	rules:
//	  - name: proxy
//	    patterns: ["407 Proxy Authentication Required"]
//	    message: "Check the proxy credentials."
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read hint rules: %w", err)
	}

	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse hint rules: %w", err)
	}
	for i, r := range f.Rules {
		if len(r.Patterns) == 0 || strings.TrimSpace(r.Message) == "" {
			return nil, fmt.Errorf("%w: rule %d (%q)", ErrInvalidRule, i, r.Name)
		}
	}
	return f.Rules, nil
}

// NewClassifierFromFile returns a Classifier with the built-in rules followed
// by the rules in path. An empty path yields the built-in rules only.
func NewClassifierFromFile(path string) (*Classifier, error) {
	rules := DefaultRules()
	if path == "" {
		return NewClassifier(rules), nil
	}
	extra, err := LoadRules(path)
	if err != nil {
		return nil, err
	}
	return NewClassifier(append(rules, extra...)), nil
}
