package model

import "strconv"

// UniqueName returns name if it is free, otherwise name followed by "..."
// and the smallest positive number that yields a free name. taken is not
// modified.
func UniqueName(name string, taken map[string]bool) string {
	if name != "" && !taken[name] {
		return name
	}
	for k := 1; ; k++ {
		candidate := name + "..." + strconv.Itoa(k)
		if !taken[candidate] {
			return candidate
		}
	}
}

// MakeUniqueNames repairs a list of names: the first occurrence of a name
// keeps it, later occurrences are suffixed as by UniqueName.
func MakeUniqueNames(names []string) []string {
	taken := make(map[string]bool, len(names))
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = UniqueName(n, taken)
		taken[out[i]] = true
	}
	return out
}
