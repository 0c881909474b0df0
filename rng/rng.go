// Package rng provides the random-bit source used for draw selection.
package rng

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// Source yields uniform integers in [0, n).
type Source interface {
	Intn(n int) (int, error)
}

var ErrInvalidBound = errors.New("rng: bound must be > 0")

// Crypto draws from crypto/rand. It carries no state and cannot be seeded.
type Crypto struct{}

func (Crypto) Intn(n int) (int, error) {
	if n <= 0 {
		return 0, ErrInvalidBound
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// chanceResolution is the number of steps a percentage is split into, so
// fractional chances such as 12.5% are honoured.
const chanceResolution = 1_000_000

// Chance runs one Bernoulli trial that succeeds with the given probability
// expressed in percent.
func Chance(src Source, percent float64) (bool, error) {
	if percent <= 0 {
		return false, nil
	}
	if percent >= 100 {
		return true, nil
	}
	n, err := src.Intn(chanceResolution)
	if err != nil {
		return false, err
	}
	return float64(n) < percent*chanceResolution/100, nil
}

// Pick returns a uniformly chosen element of items.
func Pick[T any](src Source, items []T) (T, error) {
	var zero T
	if len(items) == 0 {
		return zero, errors.New("rng: pick from empty set")
	}
	i, err := src.Intn(len(items))
	if err != nil {
		return zero, err
	}
	return items[i], nil
}
