//go:build !ios && !android && (amd64 || arm64)

package avutil

import "time"

// Rational represents a rational number (fraction) as used by FFmpeg (AVRational).
// Arithmetic is done in Go; purego cannot return structs by value on every platform.
type Rational struct {
	Num int32 // Numerator
	Den int32 // Denominator
}

// NewRational creates a new Rational with the given numerator and denominator.
func NewRational(num, den int32) Rational {
	return Rational{Num: num, Den: den}
}

// Float64 converts the rational to a float64.
// Returns 0 if the denominator is 0.
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Invert returns the inverted rational (den/num).
func (r Rational) Invert() Rational {
	return Rational{Num: r.Den, Den: r.Num}
}

// IsZero returns true if the rational is zero.
func (r Rational) IsZero() bool {
	return r.Num == 0
}

// Reduce reduces the rational to lowest terms.
func (r Rational) Reduce() Rational {
	if r.Den == 0 {
		return r
	}
	g := gcd(abs(r.Num), abs(r.Den))
	if g == 0 {
		return r
	}
	return Rational{Num: r.Num / g, Den: r.Den / g}
}

// Duration interprets r as seconds.
func (r Rational) Duration() time.Duration {
	if r.Den == 0 {
		return 0
	}
	return time.Duration(int64(r.Num) * int64(time.Second) / int64(r.Den))
}

// Rescale converts a value in time base from into time base to, rounding
// to nearest like av_rescale_q.
func Rescale(v int64, from, to Rational) int64 {
	num := int64(from.Num) * int64(to.Den)
	den := int64(from.Den) * int64(to.Num)
	if den == 0 {
		return 0
	}
	p := v * num
	if (p < 0) != (den < 0) {
		return (p - den/2) / den
	}
	return (p + den/2) / den
}

func gcd(a, b int32) int32 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs(x int32) int32 {
	if x < 0 {
		return -x
	}
	return x
}
