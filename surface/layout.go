package surface

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
)

var (
	// ErrUnsupportedFormat is returned for formats outside the supported set.
	ErrUnsupportedFormat = errors.New("surface: unsupported format")

	// ErrArithmeticOverflow is returned when a layout does not fit the
	// requested integer domain.
	ErrArithmeticOverflow = errors.New("surface: arithmetic overflow")

	// ErrEmptySurface is returned by Descriptor.Validate for zero-sized surfaces.
	ErrEmptySurface = errors.New("surface: width and height must be positive")
)

// Limit32 is the size limit for consumers that address memory with 32-bit integers.
const Limit32 = math.MaxUint32

// nativeLimit is the largest value the platform int can index.
const nativeLimit = uint64(math.MaxInt)

// Descriptor describes a surface in texels.
type Descriptor struct {
	Width  uint32
	Height uint32
	Format Format
}

// Validate checks that the descriptor names a non-empty surface of a known format.
func (d Descriptor) Validate() error {
	if d.Width == 0 || d.Height == 0 {
		return fmt.Errorf("%w: %dx%d", ErrEmptySurface, d.Width, d.Height)
	}
	if !d.Format.Known() {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, d.Format)
	}
	return nil
}

// Layout is the byte geometry of a surface once copied to system memory.
type Layout struct {
	TotalBytes uint64
	RowStride  uint64
	RowCount   uint64
}

// Layout computes the layout for the descriptor.
func (d Descriptor) Layout() (Layout, error) {
	return ComputeLayout(d.Width, d.Height, d.Format)
}

// ComputeLayout returns the layout of a width x height surface of format f.
// Results must fit in the platform int.
func ComputeLayout(width, height uint32, f Format) (Layout, error) {
	return ComputeLayoutLimit(width, height, f, nativeLimit)
}

// ComputeLayoutLimit is ComputeLayout with an explicit upper bound on each
// of the three outputs. Use Limit32 for 32-bit consumers.
func ComputeLayoutLimit(width, height uint32, f Format, limit uint64) (Layout, error) {
	info, ok := formats[f]
	if !ok {
		return Layout{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}

	w, h := uint64(width), uint64(height)
	var (
		l   Layout
		err error
	)

	switch info.class {
	case ClassBlockCompressed:
		var blocksWide, blocksHigh uint64
		if w > 0 {
			blocksWide = max(1, (w+3)/4)
		}
		if h > 0 {
			blocksHigh = max(1, (h+3)/4)
		}
		l.RowStride = blocksWide * uint64(info.bpe)
		l.RowCount = blocksHigh
		l.TotalBytes, err = mul(l.RowStride, blocksHigh)

	case ClassPacked:
		l.RowStride = ((w + 1) >> 1) * uint64(info.bpe)
		l.RowCount = h
		l.TotalBytes, err = mul(l.RowStride, h)

	case ClassPlanar411:
		l.RowStride = ((w + 3) >> 2) * 4
		l.RowCount = h * 2
		l.TotalBytes, err = mul(l.RowStride, l.RowCount)

	case ClassPlanar420:
		l.RowStride = ((w + 1) >> 1) * uint64(info.bpe)
		var luma uint64
		luma, err = mul(l.RowStride, h)
		if err == nil {
			l.TotalBytes, err = add(luma, (luma+1)>>1)
		}
		l.RowCount = h + ((h + 1) >> 1)

	default:
		l.RowStride = (w*uint64(info.bpp) + 7) / 8
		l.RowCount = h
		l.TotalBytes, err = mul(l.RowStride, h)
	}

	if err != nil {
		return Layout{}, fmt.Errorf("%w: %dx%d %s", err, width, height, f)
	}
	if l.TotalBytes > limit || l.RowStride > limit || l.RowCount > limit {
		return Layout{}, fmt.Errorf("%w: %dx%d %s needs %d bytes", ErrArithmeticOverflow, width, height, f, l.TotalBytes)
	}
	return l, nil
}

// Check verifies the class invariant tying TotalBytes to RowStride and RowCount.
func (l Layout) Check(f Format) error {
	switch f.Class() {
	case ClassUnknown:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	case ClassPlanar420:
		// RowCount is h + ceil(h/2); recover h to rebuild the chroma term.
		luma := l.RowStride * lumaRows(l.RowCount)
		if l.TotalBytes != luma+(luma+1)>>1 {
			return fmt.Errorf("surface: planar layout %+v inconsistent for %s", l, f)
		}
	default:
		if l.TotalBytes != l.RowStride*l.RowCount {
			return fmt.Errorf("surface: layout %+v inconsistent for %s", l, f)
		}
	}
	return nil
}

// lumaRows inverts rows = h + ceil(h/2).
func lumaRows(rows uint64) uint64 {
	h := rows * 2 / 3
	for h+((h+1)>>1) < rows {
		h++
	}
	for h > 0 && h+((h+1)>>1) > rows {
		h--
	}
	return h
}

func mul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrArithmeticOverflow
	}
	return lo, nil
}

func add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrArithmeticOverflow
	}
	return sum, nil
}
