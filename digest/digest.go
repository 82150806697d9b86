// Package digest implements spec.md §1's "Digest { init, update, finalize }"
// capability. Host digest primitives (MD5, SHA-1, SHA-256) are explicitly
// out of the core's scope as a third-party binding point — they are the
// one concern in this repo where the standard library is the correct and
// only reasonable choice, called out here rather than silently assumed.
package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"hash"
)

// Algorithm names a digest kind, matching the acquisition -d digest_types
// flag's vocabulary (spec.md §6).
type Algorithm string

const (
	MD5    Algorithm = "md5"
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
)

// Hasher is the Digest capability: init happens at construction, update is
// called per buffer read from the source device or container, and
// Finalize yields the digest bytes (idempotent — callers may call it more
// than once, e.g. to both store and compare).
type Hasher interface {
	Algorithm() Algorithm
	Update(p []byte)
	Finalize() []byte
}

type hasher struct {
	alg Algorithm
	h   hash.Hash
}

func (h *hasher) Algorithm() Algorithm { return h.alg }
func (h *hasher) Update(p []byte)      { h.h.Write(p) }
func (h *hasher) Finalize() []byte     { return h.h.Sum(nil) }

// New constructs a Hasher for the given algorithm.
func New(alg Algorithm) Hasher {
	switch alg {
	case MD5:
		return &hasher{alg: alg, h: md5.New()}
	case SHA1:
		return &hasher{alg: alg, h: sha1.New()}
	case SHA256:
		return &hasher{alg: alg, h: sha256.New()}
	default:
		panic("digest: unsupported algorithm " + alg)
	}
}

// Set holds the digests requested for a single workflow run, updated in
// lockstep as data passes through Acquire/Verify.
type Set struct {
	hashers map[Algorithm]Hasher
}

// NewSet builds a Set covering the given algorithms.
func NewSet(algs ...Algorithm) *Set {
	s := &Set{hashers: make(map[Algorithm]Hasher, len(algs))}
	for _, a := range algs {
		s.hashers[a] = New(a)
	}
	return s
}

// Update feeds p to every digest in the set.
func (s *Set) Update(p []byte) {
	for _, h := range s.hashers {
		h.Update(p)
	}
}

// Finalize returns the finalized raw digest bytes for each algorithm in
// the set.
func (s *Set) Finalize() map[Algorithm][]byte {
	out := make(map[Algorithm][]byte, len(s.hashers))
	for a, h := range s.hashers {
		out[a] = h.Finalize()
	}
	return out
}
