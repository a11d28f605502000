// Package credential validates provider API keys and renders them safely for
// diagnostics. Keys are never logged in full.
package credential

import (
	"strings"

	"github.com/hupe1980/protoforge/core"
)

// Recognized key prefixes per provider.
var (
	OpenAIPrefixes    = []string{"sk-proj-", "sk-"}
	AnthropicPrefixes = []string{"sk-ant-"}
)

// Validate checks that key is present and starts with one of the prefixes.
// It returns a configuration error otherwise; the error never embeds the key.
func Validate(name, key string, prefixes ...string) error {
	if strings.TrimSpace(key) == "" {
		return core.Errorf(core.KindConfiguration, "credential.validate", "%s not set", name)
	}
	if len(prefixes) == 0 {
		return nil
	}
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return nil
		}
	}
	return core.Errorf(core.KindConfiguration, "credential.validate",
		"%s has invalid format (expected prefix %s)", name, strings.Join(prefixes, " or "))
}

// Redact returns a prefix...suffix rendering of key suitable for logs.
// Short keys are fully masked.
func Redact(key string) string {
	const head, tail = 8, 4
	if len(key) <= head+tail {
		return strings.Repeat("*", len(key))
	}
	return key[:head] + "..." + key[len(key)-tail:]
}
