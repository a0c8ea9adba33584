package fingerprint

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// Kind names the hash family that produced a fingerprint.
type Kind string

const (
	KindPHash            Kind = "phash"
	KindDHash            Kind = "dhash"
	KindGoImageHashPHash Kind = "goimagehash-phash"
	KindGoImageHashAHash Kind = "goimagehash-ahash"
	KindGoImageHashDHash Kind = "goimagehash-dhash"
)

// Size is the fingerprint length in bits.
const Size = 64

var ErrInvalidFingerprint = errors.New("invalid fingerprint")

// Fingerprint is an immutable 64-bit perceptual signature of a frame.
type Fingerprint struct {
	Kind Kind   `json:"kind"`
	Bits uint64 `json:"bits"`
}

// String returns the "kind:hex" form, e.g. "phash:c3a1f0e0d0c0b0a0".
func (f Fingerprint) String() string {
	return fmt.Sprintf("%s:%016x", f.Kind, f.Bits)
}

// Parse reads a fingerprint in the form produced by String.
func Parse(s string) (Fingerprint, error) {
	kind, hex, ok := strings.Cut(s, ":")
	if !ok || kind == "" {
		return Fingerprint{}, fmt.Errorf("%w: %q: missing kind", ErrInvalidFingerprint, s)
	}
	if len(hex) != Size/4 {
		return Fingerprint{}, fmt.Errorf("%w: %q: want %d hex digits", ErrInvalidFingerprint, s, Size/4)
	}
	v, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("%w: %q: %w", ErrInvalidFingerprint, s, err)
	}
	return Fingerprint{Kind: Kind(kind), Bits: v}, nil
}

// HammingDistance computes the Hamming distance between two 64-bit hashes.
func HammingDistance(hash1, hash2 uint64) int {
	return bits.OnesCount64(hash1 ^ hash2)
}

// Distance returns the number of differing bits between two fingerprints.
// Fingerprints of different kinds are not comparable and are reported as
// maximally distant.
func Distance(a, b Fingerprint) int {
	if a.Kind != b.Kind {
		return Size
	}
	return HammingDistance(a.Bits, b.Bits)
}

// Similar returns true if two fingerprints are within the given threshold.
func Similar(a, b Fingerprint, threshold int) bool {
	return Distance(a, b) <= threshold
}
