// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package grid

import (
	"math"

	"github.com/cpmech/gosl/la"
	"github.com/unifhy-org/unifhy/unifhyerr"
)

// Method selects which of the two weight regimes a transfer's
// aggregation method implies.
type Method int

const (
	// Conservative computes W[d,s] = area(s∩d)/area(s), used for `sum`.
	Conservative Method = iota
	// AreaWeighted computes W[d,s] = area(s∩d)/area(d), used for `mean`,
	// `min`, `max`.
	AreaWeighted
)

// Weights is the cached sparse remapping matrix from a source Grid to a
// destination Grid, built once at model construction (exchanger.New).
type Weights struct {
	SrcNy, SrcNx int
	DstNy, DstNx int
	Method       Method

	// mat[d] lists (sourceCellIndex, weight) pairs contributing to
	// destination cell d (row-major index i*Nx+j). Compressed-row form:
	// each row holds only the handful of overlapping source cells.
	mat [][]weightEntry

	// NeutralRows flags destination rows whose weights summed to zero
	// after masking (every source cell is sea); these are filled with a
	// neutral value and flagged rather than silently producing garbage.
	NeutralRows []bool
}

type weightEntry struct {
	srcIdx int
	w      float64
}

// overlap1D returns the overlap length of [a0,a1) and [b0,b1).
func overlap1D(a0, a1, b0, b1 float64) float64 {
	lo := math.Max(a0, b0)
	hi := math.Min(a1, b1)
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// BuildWeights computes the remap matrix from src to dst for the given
// Method. The source mask multiplies source weights to zero on sea
// cells; the destination mask (if any) is the consumer's concern.
func BuildWeights(src, dst *Grid, method Method) (*Weights, error) {
	w := &Weights{SrcNy: src.Ny, SrcNx: src.Nx, DstNy: dst.Ny, DstNx: dst.Nx, Method: method}
	w.mat = make([][]weightEntry, dst.Ny*dst.Nx)
	w.NeutralRows = make([]bool, dst.Ny*dst.Nx)

	for di := 0; di < dst.Ny; di++ {
		dy0, dy1 := dst.YBounds[di], dst.YBounds[di+1]
		for dj := 0; dj < dst.Nx; dj++ {
			dx0, dx1 := dst.XBounds[dj], dst.XBounds[dj+1]
			dstIdx := di*dst.Nx + dj
			dAreaCell := overlapArea(dy0, dy1, dx0, dx1)

			var rowSum float64
			entries := make([]weightEntry, 0, 4)
			for si := 0; si < src.Ny; si++ {
				sy0, sy1 := src.YBounds[si], src.YBounds[si+1]
				oy := overlap1D(dy0, dy1, sy0, sy1)
				if oy <= 0 {
					continue
				}
				for sj := 0; sj < src.Nx; sj++ {
					sx0, sx1 := src.XBounds[sj], src.XBounds[sj+1]
					ox := overlap1D(dx0, dx1, sx0, sx1)
					if ox <= 0 {
						continue
					}
					if !src.active(si, sj) {
						continue // masked source cells contribute zero weight
					}
					overlapArea := sphereCellArea(math.Max(dy0, sy0), math.Min(dy1, sy1), math.Max(dx0, sx0), math.Min(dx1, sx1))
					var wij float64
					switch method {
					case Conservative:
						wij = overlapArea / src.area[si][sj]
					default: // AreaWeighted
						wij = overlapArea / dAreaCell
					}
					srcIdx := si*src.Nx + sj
					entries = append(entries, weightEntry{srcIdx, wij})
					rowSum += wij
				}
			}
			if rowSum == 0 {
				w.NeutralRows[dstIdx] = true
			}
			w.mat[dstIdx] = entries
		}
	}
	return w, nil
}

func overlapArea(y0, y1, x0, x1 float64) float64 {
	return sphereCellArea(y0, y1, x0, x1)
}

func sphereCellArea(y0, y1, x0, x1 float64) float64 {
	lat0 := y0 * math.Pi / 180
	lat1 := y1 * math.Pi / 180
	dSinLat := math.Abs(math.Sin(lat1) - math.Sin(lat0))
	dLon := math.Abs(x1-x0) * math.Pi / 180
	return EarthRadiusMetres * EarthRadiusMetres * dSinLat * dLon
}

// ToTriplet materialises the weights into a gosl/la.Triplet, for
// callers that want to batch-apply the matrix with gosl/la's own sparse
// routines instead of Apply below.
func (w *Weights) ToTriplet() *la.Triplet {
	nnz := 0
	for _, row := range w.mat {
		nnz += len(row)
	}
	t := new(la.Triplet)
	t.Init(len(w.mat), w.SrcNy*w.SrcNx, nnz)
	for d, row := range w.mat {
		for _, e := range row {
			t.Put(d, e.srcIdx, e.w)
		}
	}
	return t
}

// Apply remaps a flattened (row-major) source field of length SrcNy*SrcNx
// into a flattened destination field of length DstNy*DstNx, applying the
// reduce function implied by the transfer's aggregation method: `mean`
// and `sum` use the precomputed linear weights (plain weighted sum);
// `min`/`max` use the weights only to select contributing source cells
// and then apply the scalar reduction elementwise.
func (w *Weights) Apply(src []float64, reduce Reduce) ([]float64, error) {
	if len(src) != w.SrcNy*w.SrcNx {
		return nil, unifhyerr.NewShapeError("remap source length %d does not match grid size %d", len(src), w.SrcNy*w.SrcNx)
	}
	dst := make([]float64, w.DstNy*w.DstNx)
	for d, row := range w.mat {
		if w.NeutralRows[d] {
			dst[d] = reduce.Neutral()
			continue
		}
		dst[d] = reduce.Fold(row, src)
	}
	return dst, nil
}

// Reduce abstracts the linear-weighted-sum vs scalar-reduction split of
// the two weight regimes.
type Reduce interface {
	Fold(entries []weightEntry, src []float64) float64
	Neutral() float64
}

// LinearReduce implements the weighted-sum fold shared by `mean` (weights
// sum to 1 per row) and `sum` (conservative weights split and sum source
// mass); it is simply Σ W[d,s]·value_S[s].
type LinearReduce struct {
	// NeutralIsNaN selects the neutral fill for all-masked rows: NaN for
	// means, zero for sums.
	NeutralIsNaN bool
}

func (r LinearReduce) Fold(entries []weightEntry, src []float64) float64 {
	var sum float64
	for _, e := range entries {
		sum += e.w * src[e.srcIdx]
	}
	return sum
}

func (r LinearReduce) Neutral() float64 {
	if r.NeutralIsNaN {
		return math.NaN()
	}
	return 0
}

// MinMaxReduce implements the scalar min/max reduction over the set of
// source cells a destination cell overlaps, ignoring the magnitude of
// the weight (only its presence matters).
type MinMaxReduce struct {
	Max bool
}

func (r MinMaxReduce) Fold(entries []weightEntry, src []float64) float64 {
	unifhyerr.Invariant(len(entries) > 0, "MinMaxReduce.Fold called with no contributing source cells")
	best := src[entries[0].srcIdx]
	for _, e := range entries[1:] {
		v := src[e.srcIdx]
		if r.Max && v > best {
			best = v
		}
		if !r.Max && v < best {
			best = v
		}
	}
	return best
}

func (r MinMaxReduce) Neutral() float64 { return math.NaN() }

// ConservesMass reports whether a conservative (`sum`-method) remap
// preserves total mass up to the outflow sink, i.e. Σ_d W[d,:]·v_S
// equals Σ_s v_S[s] restricted to cells whose weight row is nonzero
// after masking.
func (w *Weights) ConservesMass(src []float64, tol float64) (bool, float64, float64) {
	dst, _ := w.Apply(src, LinearReduce{})
	var totalSrc, totalDst float64
	for i := range w.mat {
		if w.NeutralRows[i] {
			continue
		}
		totalDst += dst[i]
	}
	totalSrc = sumContributing(w, src)
	return math.Abs(totalSrc-totalDst) <= tol, totalSrc, totalDst
}

func sumContributing(w *Weights, src []float64) float64 {
	covered := make(map[int]bool)
	for i, row := range w.mat {
		if w.NeutralRows[i] {
			continue
		}
		for _, e := range row {
			covered[e.srcIdx] = true
		}
	}
	var total float64
	for idx := range covered {
		total += src[idx]
	}
	return total
}
