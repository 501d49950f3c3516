// Package codegen produces short codes for new links.
package codegen

import (
	"fmt"

	"github.com/jaevor/go-nanoid"
	"github.com/serroba/shortlink/internal/link"
)

// Generator produces short codes. Generation policy is external to the
// stores: the caller generates a candidate code and handles duplicate-code
// errors by regenerating if it chooses to.
type Generator interface {
	Generate() link.Code
}

const (
	// DefaultLength is long enough that collisions are negligible at
	// realistic write rates (see Naive).
	DefaultLength = 8

	// MinLength guards against a code space too small to be practical.
	// Two characters over the standard alphabet yield 4,096 codes.
	MinLength = 2
)

// Naive picks a random code from a fixed space and assumes the space is
// large enough that collisions are rare. That does not hold in general, but
// coupled with duplicate detection and retry at the call site it is a
// reasonable policy for most deployments.
//
// Approximate collision behavior over the standard 64-character alphabet:
//
//	length 2:             4,096 codes — toy deployments only
//	length 4:        16,777,216 codes — half-life ~3 months at 1 write/s
//	length 6:    68,719,476,736 codes — half-life ~1,000 years at 1 write/s
//	length 7: 4,398,046,511,104 codes — practically inexhaustible
type Naive struct {
	generate func() string
}

// NewNaive creates a generator with the standard URL-safe alphabet.
func NewNaive(length int) (*Naive, error) {
	if length < MinLength {
		return nil, fmt.Errorf("code length must be >= %d, got %d", MinLength, length)
	}

	gen, err := nanoid.Standard(length)
	if err != nil {
		return nil, fmt.Errorf("build code generator: %w", err)
	}

	return &Naive{generate: gen}, nil
}

// NewNaiveWithAlphabet creates a generator drawing codes of the given length
// from a custom ASCII alphabet.
func NewNaiveWithAlphabet(alphabet string, length int) (*Naive, error) {
	if length < MinLength {
		return nil, fmt.Errorf("code length must be >= %d, got %d", MinLength, length)
	}

	gen, err := nanoid.CustomASCII(alphabet, length)
	if err != nil {
		return nil, fmt.Errorf("build code generator: %w", err)
	}

	return &Naive{generate: gen}, nil
}

func (n *Naive) Generate() link.Code {
	return link.Code(n.generate())
}

var _ Generator = (*Naive)(nil)
