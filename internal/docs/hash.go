package docs

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// ContentHash computes a deterministic hash over a document set from each
// document's path and fingerprint. Watch mode compares it across rebuilds to
// skip emitting an unchanged site.
func ContentHash(documents []*Document) string {
	entries := make([]*Document, len(documents))
	copy(entries, documents)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	h := sha256.New()
	if len(entries) == 0 {
		h.Write([]byte("empty-content-set"))
	}
	for _, doc := range entries {
		h.Write([]byte(doc.Path))
		h.Write([]byte{'|'})
		h.Write([]byte(doc.Fingerprint))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
