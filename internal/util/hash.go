// Package util provides shared utility functions.
package util

import (
	"hash/fnv"
	"slices"
)

// FlagSetID computes a 4-byte hash identifying a set of string flags.
// Order and duplicates do not affect the result, so two payloads carrying
// the same permissions in a different order hash identically. The hash is
// used solely for identification and does not need to be reversible.
func FlagSetID(flags []string) uint32 {
	sorted := slices.Clone(flags)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	h := fnv.New32a()
	for _, f := range sorted {
		h.Write([]byte(f))
		h.Write([]byte{0})
	}
	return h.Sum32()
}
