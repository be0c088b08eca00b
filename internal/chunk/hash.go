package chunk

import "hash/fnv"

// HashText computes the FNV-1a 32-bit hash of text. It is used purely for
// change detection, both at the document level (FileState) and per chunk
// (stale excerpt detection); it carries no cryptographic guarantees.
func HashText(text string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	return h.Sum32()
}
