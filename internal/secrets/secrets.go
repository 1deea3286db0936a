// Package secrets resolves named secrets and redacts secret-shaped
// substrings from persisted request fields before they're written to the
// execution trace. Grounded on the teacher's apps/cli/internal/act
// filterEnvironment allowlist idea, inverted into a denylist-style regex
// redactor since trace fields are free-form text, not an environment map.
package secrets

import (
	"context"
	"fmt"
	"os"
	"regexp"
)

// EnvProvider resolves secrets from the process environment, snapshotted
// once at startup per the engine's "no global state except the
// secret/env snapshot at startup" design note.
type EnvProvider struct {
	snapshot map[string]string
}

// NewEnvProvider snapshots the given env var names at construction time.
func NewEnvProvider(names ...string) *EnvProvider {
	snap := make(map[string]string, len(names))
	for _, n := range names {
		snap[n] = os.Getenv(n)
	}
	return &EnvProvider{snapshot: snap}
}

func (p *EnvProvider) Get(_ context.Context, name string) (string, error) {
	v, ok := p.snapshot[name]
	if !ok || v == "" {
		return "", fmt.Errorf("secret %q not configured", name)
	}
	return v, nil
}

// redactionPatterns catches common secret-shaped substrings: bearer
// tokens, API keys, AWS-style access keys, and generic key=value secrets.
var redactionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(bearer)\s+[a-z0-9._\-]{10,}`),
	regexp.MustCompile(`(?i)(sk-[a-z0-9]{10,})`),
	regexp.MustCompile(`(?i)(api[_-]?key["'=:\s]+)[a-z0-9._\-]{8,}`),
	regexp.MustCompile(`(?i)(AKIA[0-9A-Z]{16})`),
	regexp.MustCompile(`(?i)((?:secret|token|password)["'=:\s]+)[a-z0-9._\-]{8,}`),
}

const redactedPlaceholder = "[REDACTED]"

// Redact replaces every secret-shaped substring in s with a placeholder.
// Applied to instructions and raw request dumps before trace persistence.
func Redact(s string) string {
	out := s
	for _, re := range redactionPatterns {
		out = re.ReplaceAllStringFunc(out, func(match string) string {
			sub := re.FindStringSubmatch(match)
			if len(sub) > 1 && sub[1] != match {
				return sub[1] + redactedPlaceholder
			}
			return redactedPlaceholder
		})
	}
	return out
}
