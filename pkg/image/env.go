package image

import (
	"regexp"
	"strings"
)

var envVarRef = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)

// substitutePlaceholders expands ${VAR} and $VAR occurrences in v using values from original.
// Order: first ${VAR}, then $VAR. No recursive expansion.
func substitutePlaceholders(v string, original map[string]string) string {
	if len(original) == 0 || v == "" || !strings.Contains(v, "$") {
		return v
	}
	for k, val := range original { // ${VAR}
		placeholder := "${" + k + "}"
		if strings.Contains(v, placeholder) {
			v = strings.ReplaceAll(v, placeholder, val)
		}
	}
	v = envVarRef.ReplaceAllStringFunc(v, func(m string) string {
		name := m[1:]
		if val, ok := original[name]; ok {
			return val
		}
		return m
	})
	return v
}

// applyEnvOverrides applies desired KEY=VALUE overrides (and additions) to the
// existing environment slice. Placeholders expand against the pre-override
// values, so PATH=${PATH}:/app appends rather than recurses.
func applyEnvOverrides(existing []string, desiredKVs []string) []string {
	if len(desiredKVs) == 0 {
		out := make([]string, len(existing))
		copy(out, existing)
		return out
	}

	desired := make(map[string]string, len(desiredKVs))
	order := make([]string, 0, len(desiredKVs))
	for _, kv := range desiredKVs {
		if i := strings.Index(kv, "="); i > 0 {
			k := kv[:i]
			v := kv[i+1:]
			desired[k] = v
			order = append(order, k)
		}
	}

	original := make(map[string]string, len(existing))
	for _, e := range existing {
		if j := strings.Index(e, "="); j > 0 {
			original[e[:j]] = e[j+1:]
		}
	}

	out := make([]string, 0, len(existing)+len(desired))
	seen := make(map[string]bool, len(desired))
	for _, e := range existing {
		j := strings.Index(e, "=")
		if j <= 0 {
			out = append(out, e)
			continue
		}
		k := e[:j]
		if v, ok := desired[k]; ok {
			out = append(out, k+"="+substitutePlaceholders(v, original))
			seen[k] = true
		} else {
			out = append(out, e)
		}
	}
	for _, k := range order {
		if !seen[k] {
			out = append(out, k+"="+substitutePlaceholders(desired[k], original))
			seen[k] = true
		}
	}
	return out
}
