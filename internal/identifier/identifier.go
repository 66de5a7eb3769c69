// Package identifier generates the random human facing codes used for
// order reference numbers and employee registration numbers.
package identifier

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
)

const (
	lowerAlphanumeric = "abcdefghijklmnopqrstuvwxyz0123456789"
	digits            = "0123456789"
)

// ErrSpaceExhausted is returned when no free identifier was found within the
// allowed number of attempts
var ErrSpaceExhausted = errors.New("identifier space exhausted")

// Generator produces fixed-length random codes over an alphabet
type Generator struct {
	alphabet string
	length   int
	intN     func(n int) int
}

// NewGenerator creates a generator drawing from alphabet.
// intN defaults to math/rand/v2 when nil.
func NewGenerator(alphabet string, length int, intN func(n int) int) *Generator {
	if intN == nil {
		intN = rand.IntN
	}
	return &Generator{alphabet: alphabet, length: length, intN: intN}
}

// RefNumbers produces 10 character [a-z0-9] order reference numbers
func RefNumbers() *Generator {
	return NewGenerator(lowerAlphanumeric, 10, nil)
}

// RegNumbers produces 4 digit employee registration numbers
func RegNumbers() *Generator {
	return NewGenerator(digits, 4, nil)
}

// Next returns a new random code
func (g *Generator) Next() string {
	var b strings.Builder
	b.Grow(g.length)
	for i := 0; i < g.length; i++ {
		b.WriteByte(g.alphabet[g.intN(len(g.alphabet))])
	}
	return b.String()
}

// Length returns the code length
func (g *Generator) Length() int {
	return g.length
}

// Space returns the number of distinct codes, capped at the max int
func (g *Generator) Space() int {
	space := 1
	for i := 0; i < g.length; i++ {
		if space > int(^uint(0)>>1)/len(g.alphabet) {
			return int(^uint(0) >> 1)
		}
		space *= len(g.alphabet)
	}
	return space
}

// TakenFunc reports whether a candidate is already in use
type TakenFunc func(ctx context.Context, candidate string) (bool, error)

// Unique draws codes until taken reports a free one, giving up after
// maxAttempts draws
func Unique(ctx context.Context, g *Generator, taken TakenFunc, maxAttempts int) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate := g.Next()
		used, err := taken(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check identifier: %w", err)
		}
		if !used {
			return candidate, nil
		}
	}
	return "", ErrSpaceExhausted
}
