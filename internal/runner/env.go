package runner

import (
	"fmt"
	"sort"
	"strings"
)

// BuildEnv returns the child environment. With clean set only overrides
// are used; otherwise overrides replace or extend base. Overrides are
// appended in key order.
func BuildEnv(base []string, clean bool, overrides map[string]string) []string {
	env := make([]string, 0, len(base)+len(overrides))
	if !clean {
		for _, kv := range base {
			key, _, _ := strings.Cut(kv, "=")
			if _, replaced := overrides[key]; !replaced {
				env = append(env, kv)
			}
		}
	}
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+overrides[k])
	}
	return env
}

// ParseEnvPairs turns KEY=VALUE strings into a map. Later pairs win.
func ParseEnvPairs(pairs []string) (map[string]string, error) {
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid environment entry %q (want KEY=VALUE)", p)
		}
		m[k] = v
	}
	return m, nil
}
