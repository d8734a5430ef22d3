package utils

import (
	"sort"
	"strings"
)

// MergeEnv layers overlay maps over a base KEY=VALUE environment.
// Base order is preserved, overridden keys keep their position, new
// keys are appended sorted per overlay. Later overlays win.
func MergeEnv(base []string, overlays ...map[string]string) []string {
	out := make([]string, len(base))
	copy(out, base)

	index := make(map[string]int, len(out))
	for i, kv := range out {
		if eq := strings.IndexByte(kv, '='); eq >= 0 {
			index[kv[:eq]] = i
		}
	}

	for _, overlay := range overlays {
		keys := make([]string, 0, len(overlay))
		for k := range overlay {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			kv := k + "=" + overlay[k]
			if i, ok := index[k]; ok {
				out[i] = kv
				continue
			}
			index[k] = len(out)
			out = append(out, kv)
		}
	}
	return out
}
