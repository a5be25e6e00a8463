package p256k1

import (
	"hash"
	"sync"
	"unsafe"

	sha256simd "github.com/minio/sha256-simd"
)

// Precomputed SHA256(tag) prefixes for the tags used by BIP-340 and BIP-341.
// They are computed once and only read afterwards.
var (
	taggedHashPrefixes map[string][32]byte
	taggedHashInitOnce sync.Once
)

var commonTags = []string{
	"BIP0340/aux",
	"BIP0340/nonce",
	"BIP0340/challenge",
	"TapTweak",
	"TapSighash",
}

func initTaggedHashPrefixes() {
	taggedHashPrefixes = make(map[string][32]byte, len(commonTags))
	for _, tag := range commonTags {
		taggedHashPrefixes[tag] = sha256simd.Sum256([]byte(tag))
	}
}

// getTaggedHashPrefix returns the precomputed SHA256(tag) for common tags
func getTaggedHashPrefix(tag []byte) [32]byte {
	taggedHashInitOnce.Do(initTaggedHashPrefixes)
	if h, ok := taggedHashPrefixes[string(tag)]; ok {
		return h
	}
	return sha256simd.Sum256(tag)
}

// SHA256 represents a SHA-256 hash context
type SHA256 struct {
	hasher hash.Hash
}

// NewSHA256 creates a new SHA-256 hash context
func NewSHA256() *SHA256 {
	return &SHA256{hasher: sha256simd.New()}
}

// Write writes data to the hash
func (h *SHA256) Write(data []byte) {
	h.hasher.Write(data)
}

// Finalize writes the digest to out32 (must be 32 bytes)
func (h *SHA256) Finalize(out32 []byte) {
	if len(out32) != 32 {
		panic("output buffer must be 32 bytes")
	}
	copy(out32, h.hasher.Sum(nil))
}

// Clear drops the hash state
func (h *SHA256) Clear() {
	h.hasher = nil
}

// SHA256Sum returns SHA256(data).
func SHA256Sum(data []byte) [32]byte {
	return sha256simd.Sum256(data)
}

// DoubleSHA256 returns SHA256(SHA256(data)), the hash Bitcoin uses for
// txids, BIP143 digests and Base58Check checksums.
func DoubleSHA256(data []byte) [32]byte {
	first := sha256simd.Sum256(data)
	return sha256simd.Sum256(first[:])
}

// TaggedHash computes SHA256(SHA256(tag) || SHA256(tag) || data)
func TaggedHash(tag []byte, data ...[]byte) [32]byte {
	tagHash := getTaggedHashPrefix(tag)
	h := sha256simd.New()
	h.Write(tagHash[:])
	h.Write(tagHash[:])
	for _, d := range data {
		h.Write(d)
	}
	var result [32]byte
	copy(result[:], h.Sum(nil))
	return result
}

// HMACSHA256 represents an HMAC-SHA256 context
type HMACSHA256 struct {
	inner, outer SHA256
}

// NewHMACSHA256 creates a new HMAC-SHA256 context with the given key
func NewHMACSHA256(key []byte) *HMACSHA256 {
	h := &HMACSHA256{}

	// Keys longer than the block size are hashed first; shorter keys are
	// zero padded.
	var rkey [64]byte
	if len(key) <= 64 {
		copy(rkey[:], key)
	} else {
		sum := sha256simd.Sum256(key)
		copy(rkey[:32], sum[:])
	}

	h.outer = *NewSHA256()
	for i := range rkey {
		rkey[i] ^= 0x5c
	}
	h.outer.Write(rkey[:])

	h.inner = *NewSHA256()
	for i := range rkey {
		rkey[i] ^= 0x5c ^ 0x36
	}
	h.inner.Write(rkey[:])

	memclear(unsafe.Pointer(&rkey), unsafe.Sizeof(rkey))
	return h
}

// Write writes data to the inner hash
func (h *HMACSHA256) Write(data []byte) {
	h.inner.Write(data)
}

// Finalize finalizes the HMAC and writes the result to out32 (must be 32 bytes)
func (h *HMACSHA256) Finalize(out32 []byte) {
	var temp [32]byte
	h.inner.Finalize(temp[:])
	h.outer.Write(temp[:])
	h.outer.Finalize(out32)
	memclear(unsafe.Pointer(&temp), unsafe.Sizeof(temp))
}

// Clear clears the HMAC context
func (h *HMACSHA256) Clear() {
	h.inner.Clear()
	h.outer.Clear()
}

func hmacSHA256(key []byte, out32 []byte, data ...[]byte) {
	h := NewHMACSHA256(key)
	for _, d := range data {
		h.Write(d)
	}
	h.Finalize(out32)
	h.Clear()
}

// RFC6979HMACSHA256 is the HMAC-SHA256 DRBG of RFC 6979 section 3.2.
type RFC6979HMACSHA256 struct {
	v     [32]byte
	k     [32]byte
	retry bool
}

// NewRFC6979HMACSHA256 seeds the generator with key, which for ECDSA is the
// secret key followed by the reduced message hash.
func NewRFC6979HMACSHA256(key []byte) *RFC6979HMACSHA256 {
	rng := &RFC6979HMACSHA256{}
	for i := range rng.v {
		rng.v[i] = 0x01
	}

	// K = HMAC_K(V || 0x00 || key), V = HMAC_K(V)
	hmacSHA256(rng.k[:], rng.k[:], rng.v[:], []byte{0x00}, key)
	hmacSHA256(rng.k[:], rng.v[:], rng.v[:])

	// K = HMAC_K(V || 0x01 || key), V = HMAC_K(V)
	hmacSHA256(rng.k[:], rng.k[:], rng.v[:], []byte{0x01}, key)
	hmacSHA256(rng.k[:], rng.v[:], rng.v[:])

	return rng
}

// Generate fills out with the next candidate. Every call after the first
// applies the retry update K = HMAC_K(V || 0x00), V = HMAC_K(V) first.
func (rng *RFC6979HMACSHA256) Generate(out []byte) {
	if rng.retry {
		hmacSHA256(rng.k[:], rng.k[:], rng.v[:], []byte{0x00})
		hmacSHA256(rng.k[:], rng.v[:], rng.v[:])
	}

	for len(out) > 0 {
		hmacSHA256(rng.k[:], rng.v[:], rng.v[:])
		n := copy(out, rng.v[:])
		out = out[n:]
	}

	rng.retry = true
}

// Clear clears the RFC6979 context
func (rng *RFC6979HMACSHA256) Clear() {
	memclear(unsafe.Pointer(rng), unsafe.Sizeof(*rng))
}
