package fingerprint

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/corona10/goimagehash"
)

var ErrUnknownProvider = errors.New("unknown hash algorithm")

// Provider computes fingerprints from raw image bytes and measures the
// distance between two of them.
type Provider interface {
	Kind() Kind
	Compute(data []byte) (Fingerprint, error)
	Distance(a, b Fingerprint) int
}

// hashFunc turns a decoded image into 64 bits.
type hashFunc func(img image.Image) (uint64, error)

type provider struct {
	kind Kind
	hash hashFunc
}

func (p *provider) Kind() Kind { return p.kind }

func (p *provider) Compute(data []byte) (Fingerprint, error) {
	img, err := Decode(data)
	if err != nil {
		return Fingerprint{}, err
	}
	v, err := p.hash(img)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("%s: %w", p.kind, err)
	}
	return Fingerprint{Kind: p.kind, Bits: v}, nil
}

func (p *provider) Distance(a, b Fingerprint) int {
	return Distance(a, b)
}

func native(fn func(image.Image) uint64) hashFunc {
	return func(img image.Image) (uint64, error) {
		return fn(img), nil
	}
}

// goImageHash adapts a goimagehash constructor.
func goImageHash(fn func(image.Image) (*goimagehash.ImageHash, error)) hashFunc {
	return func(img image.Image) (uint64, error) {
		h, err := fn(img)
		if err != nil {
			return 0, err
		}
		return h.GetHash(), nil
	}
}

var providers = map[Kind]hashFunc{
	KindPHash:            native(computePHash),
	KindDHash:            native(computeDHash),
	KindGoImageHashPHash: goImageHash(goimagehash.PerceptionHash),
	KindGoImageHashAHash: goImageHash(goimagehash.AverageHash),
	KindGoImageHashDHash: goImageHash(goimagehash.DifferenceHash),
}

// New returns the provider for the given kind.
func New(kind Kind) (Provider, error) {
	fn, ok := providers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownProvider, kind, Names())
	}
	return &provider{kind: kind, hash: fn}, nil
}

// ByName is New for a plain string, as read from flags and environment.
func ByName(name string) (Provider, error) {
	return New(Kind(name))
}

// Names lists the available algorithms in sorted order.
func Names() []string {
	names := make([]string, 0, len(providers))
	for k := range providers {
		names = append(names, string(k))
	}
	sort.Strings(names)
	return names
}
