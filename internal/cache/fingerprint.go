package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"
	"strings"

	"github.com/codeargus/pkg/models"
)

// Fingerprint derives the cache key for a request targeting the given
// provider identity ("name/model"). The serialization is canonical:
// fields are hashed in a fixed order, each framed by its length so that
// no two distinct requests can collide by concatenation, focus areas
// are sorted, and line endings in diff and context are normalized.
// Structurally equal requests always produce the same key; changing any
// field, or the provider identity, produces a different one.
func Fingerprint(req *models.AnalysisRequest, identity string) Key {
	h := sha256.New()

	writeField(h, normalizeNewlines(req.DiffText))

	writeField(h, fmt.Sprintf("%d", len(req.LocalContext)))
	for _, cf := range req.LocalContext {
		writeField(h, cf.Path)
		writeField(h, normalizeNewlines(cf.Content))
	}

	areas := append([]string(nil), req.FocusAreas...)
	sort.Strings(areas)
	writeField(h, strings.Join(areas, ","))

	writeField(h, string(req.Strictness))
	writeField(h, req.Params.Model)
	writeField(h, fmt.Sprintf("%.4f", req.Params.Temperature))
	writeField(h, fmt.Sprintf("%d", req.Params.MaxTokens))
	writeField(h, identity)

	return Key{
		Namespace: NamespaceFor(identity),
		Digest:    hex.EncodeToString(h.Sum(nil)),
	}
}

// NamespaceFor sanitizes a provider identity into a path-safe namespace
func NamespaceFor(identity string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_", "..", "_")
	ns := replacer.Replace(identity)
	if ns == "" {
		ns = "default"
	}
	return ns
}

// writeField hashes a length-prefixed field so that field boundaries
// are unambiguous regardless of content
func writeField(h hash.Hash, field string) {
	var frame [8]byte
	binary.BigEndian.PutUint64(frame[:], uint64(len(field)))
	h.Write(frame[:])
	h.Write([]byte(field))
}

// normalizeNewlines maps CRLF and CR to LF so that checkouts from
// different platforms fingerprint identically
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
