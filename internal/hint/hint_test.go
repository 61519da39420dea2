package hint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_DefaultRules(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		name     string
		log      string
		wantRule string
	}{
		{"icu", "Process terminated. Couldn't find a valid ICU package installed on the system.", "missing-icu"},
		{"icu link", "see https://aka.ms/dotnet-missing-libicu", "missing-icu"},
		{"quality", "[ERROR] - Unable to find requested quality 1080p60", "quality-unavailable"},
		{"rate limit code", "Response status code does not indicate success: 429", "rate-limited"},
		{"rate limit text", "HTTP 429 Too Many Requests", "rate-limited"},
		{"disk full", "System.IO.IOException: No space left on device : '/tmp/abc'", "scratch-full"},
	}

	rules := map[string]string{}
	for _, r := range DefaultRules() {
		rules[r.Name] = r.Message
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, rules[tt.wantRule], c.Classify(tt.log))
		})
	}
}

func TestClassify_RateLimitLines(t *testing.T) {
	c := NewClassifier(nil)
	log := "Downloading 12/340 parts\n[ERROR] Too Many Requests\nretrying part 13"

	assert.NotEmpty(t, c.Classify(log))
}

func TestClassify_NoMatch(t *testing.T) {
	c := NewClassifier(nil)

	assert.Empty(t, c.Classify(""))
	assert.Empty(t, c.Classify("VideoDownload failed (exit 1)\nUnhandled exception: VOD is subscriber only"))
}

func TestClassify_FirstMatchWins(t *testing.T) {
	c := NewClassifier([]Rule{
		{Name: "a", Patterns: []string{"boom"}, Message: "first"},
		{Name: "b", Patterns: []string{"boom"}, Message: "second"},
	})
	assert.Equal(t, "first", c.Classify("boom"))

	// ICU outranks the rate limit rule when both appear.
	d := NewClassifier(nil)
	log := "429\nCouldn't find a valid ICU package installed"
	assert.Equal(t, DefaultRules()[0].Message, d.Classify(log))
}

func TestRule_EmptyPatternNeverMatches(t *testing.T) {
	r := Rule{Patterns: []string{""}, Message: "x"}
	assert.False(t, r.Matches("anything"))
}

func TestClassifier_RulesReturnsCopy(t *testing.T) {
	c := NewClassifier(nil)
	rules := c.Rules()
	rules[0].Message = "changed"
	assert.NotEqual(t, "changed", c.Rules()[0].Message)
}

func TestNewClassifierFromFile(t *testing.T) {
	t.Run("empty path uses built-ins", func(t *testing.T) {
		c, err := NewClassifierFromFile("")
		require.NoError(t, err)
		assert.Len(t, c.Rules(), len(DefaultRules()))
	})

	t.Run("appends file rules after built-ins", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "hints.yaml")
		content := `rules:
  - name: subscriber-only
    patterns: ["subscriber only", "sub-only"]
    message: "This VOD is subscriber-only."
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		c, err := NewClassifierFromFile(path)
		require.NoError(t, err)
		rules := c.Rules()
		require.Len(t, rules, len(DefaultRules())+1)
		assert.Equal(t, "subscriber-only", rules[len(rules)-1].Name)
		assert.Equal(t, "This VOD is subscriber-only.", c.Classify("error: VOD is subscriber only"))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewClassifierFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("invalid rule", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("rules:\n  - name: empty\n    message: x\n"), 0o600))

		_, err := NewClassifierFromFile(path)
		assert.ErrorIs(t, err, ErrInvalidRule)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("rules: [unclosed"), 0o600))

		_, err := NewClassifierFromFile(path)
		require.Error(t, err)
	})
}
