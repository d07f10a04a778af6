// Package util provides shared utility functions.
package util

import (
	"fmt"
	"hash/fnv"
)

// ShortID returns an 8-hex-digit tag for a long identifier (host ids, device
// ids) so log lines stay readable. It is not reversible and not unique.
func ShortID(id string) string {
	h := fnv.New32a()
	h.Write([]byte(id))
	return fmt.Sprintf("%08x", h.Sum32())
}
