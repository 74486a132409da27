/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package tdigest

import (
	"math"
	"sort"
)

// doubleCentroid summarizes a contiguous run of observations along the
// value axis at double precision.
type doubleCentroid struct {
	mean   float64
	weight uint64
}

// add folds other into c using the weighted-mean update that avoids
// catastrophic cancellation when the two means are close together. This
// must not be rewritten as (w1*m1+w2*m2)/(w1+w2): that form loses
// precision exactly where t-digest needs it most, at the tails where
// weights are small and means are nearly equal.
func (c *doubleCentroid) add(other doubleCentroid) {
	c.weight += other.weight
	c.mean += (other.mean - c.mean) * float64(other.weight) / float64(c.weight)
}

// Double is a t-digest specialized to float64 observations and centroid
// means. It estimates quantiles and ranks over an unbounded stream with
// memory bounded by its compression parameter k.
//
// A Double is not safe for concurrent mutation, nor for concurrent
// mutation alongside reads. Build one Double per producer and merge
// them serially at a join point.
type Double struct {
	min, max         float64
	k                uint16
	internalK        uint16
	compressed       []doubleCentroid
	compressedWeight uint64
	compressedCap    int
	buffer           []doubleCentroid
	bufferedWeight   uint64
	reverseMerge     bool
	opts             digestOptions
}

// NewDouble creates an empty Double with the given compression parameter.
// k must be at least minK (10); DefaultK (100) is a reasonable default
// for most workloads.
func NewDouble(k uint16, opts ...Option) (*Double, error) {
	if k < minK {
		return nil, ErrInvalidK
	}

	o := defaultDigestOptions()
	for _, opt := range opts {
		opt(&o)
	}

	internalK := k
	if o.twoLevelCompression {
		internalK = k * twoLevelFactor
	}

	capacity := compressedCapacity(internalK)
	return &Double{
		min:           math.Inf(1),
		max:           math.Inf(-1),
		k:             k,
		internalK:     internalK,
		compressedCap: capacity,
		compressed:    make([]doubleCentroid, 0, capacity),
		buffer:        make([]doubleCentroid, 0, capacity*bufferMultiplier),
		reverseMerge:  false,
		opts:          o,
	}, nil
}

func compressedCapacity(internalK uint16) int {
	fudge := 10
	if internalK < 30 {
		fudge = 30
	}
	return 2*int(internalK) + fudge
}

// newDoubleFromState reconstructs a Double from decoded wire fields.
func newDoubleFromState(
	k uint16,
	opts digestOptions,
	reverseMerge bool,
	min, max float64,
	compressed []doubleCentroid,
	compressedWeight uint64,
) (*Double, error) {
	if k < minK {
		return nil, ErrInvalidK
	}
	internalK := k
	if opts.twoLevelCompression {
		internalK = k * twoLevelFactor
	}
	capacity := compressedCapacity(internalK)
	if cap(compressed) < capacity {
		grown := make([]doubleCentroid, len(compressed), capacity)
		copy(grown, compressed)
		compressed = grown
	}
	return &Double{
		min:              min,
		max:              max,
		k:                k,
		internalK:        internalK,
		compressedCap:    capacity,
		compressed:       compressed,
		compressedWeight: compressedWeight,
		buffer:           make([]doubleCentroid, 0, capacity*bufferMultiplier),
		reverseMerge:     reverseMerge,
		opts:             opts,
	}, nil
}

// K returns the compression parameter this digest was constructed with.
func (d *Double) K() uint16 { return d.k }

// IsEmpty reports whether this digest has absorbed no observations.
func (d *Double) IsEmpty() bool {
	return len(d.compressed) == 0 && len(d.buffer) == 0
}

// MinValue returns the smallest observation seen, or NaN if empty.
func (d *Double) MinValue() float64 {
	if d.IsEmpty() {
		return math.NaN()
	}
	return d.min
}

// MaxValue returns the largest observation seen, or NaN if empty.
func (d *Double) MaxValue() float64 {
	if d.IsEmpty() {
		return math.NaN()
	}
	return d.max
}

// TotalWeight returns the number of observations absorbed, counting
// merged-in weight.
func (d *Double) TotalWeight() uint64 {
	return d.compressedWeight + d.bufferedWeight
}

// Update absorbs a single observation as a singleton centroid of weight 1.
// NaN is rejected; it is never silently accepted.
func (d *Double) Update(value float64) error {
	if math.IsNaN(value) {
		return ErrNaN
	}

	if len(d.buffer) == cap(d.buffer) {
		d.mergeBuffered()
	}

	d.buffer = append(d.buffer, doubleCentroid{mean: value, weight: 1})
	d.bufferedWeight++
	if value < d.min {
		d.min = value
	}
	if value > d.max {
		d.max = value
	}
	return nil
}

// Merge drains other's centroids (compressed and buffered) into this
// digest and forces integration. other is left holding the same data it
// started with: Merge only ever reads from other, it never mutates it.
func (d *Double) Merge(other *Double) error {
	if other == nil || other.IsEmpty() {
		return nil
	}

	incoming := make([]doubleCentroid, 0, len(other.compressed)+len(other.buffer))
	incoming = append(incoming, other.compressed...)
	incoming = append(incoming, other.buffer...)

	d.buffer = append(d.buffer, incoming...)
	d.bufferedWeight += other.TotalWeight()

	if other.min < d.min {
		d.min = other.min
	}
	if other.max > d.max {
		d.max = other.max
	}

	d.mergeBuffered()
	return nil
}

// Compress forces integration of any buffered centroids and, when
// two-level compression is enabled, runs a second pass down to k-scale.
// It is idempotent when the buffer is already empty.
func (d *Double) Compress() {
	hadBuffer := len(d.buffer) > 0
	d.mergeBuffered()
	if d.opts.twoLevelCompression && hadBuffer {
		d.recompressToK()
	}
}

// mergeBuffered is the only mutator of compressed. It is a no-op when
// the buffer is empty.
func (d *Double) mergeBuffered() {
	if len(d.buffer) == 0 {
		return
	}
	d.integrate(float64(d.internalK))
}

// recompressToK re-runs the merge engine over the already-compressed
// centroids at k-scale instead of internal_k-scale, shrinking a
// two-level digest down before a query or serialization.
func (d *Double) recompressToK() {
	if len(d.compressed) == 0 {
		return
	}
	d.buffer = append(d.buffer, d.compressed...)
	d.bufferedWeight += d.compressedWeight
	d.compressed = d.compressed[:0]
	d.compressedWeight = 0
	d.integrate(float64(d.k))
}

// integrate implements the merge/compress engine: sort the buffer
// (absorbing the current compressed array into it), then scan and
// coalesce centroids under the scale function's weight bound, producing
// a new compressed array. This is the hot path.
func (d *Double) integrate(delta float64) {
	buf := append(d.buffer, d.compressed...)

	descending := d.opts.alternatingSort && d.reverseMerge
	if descending {
		sort.SliceStable(buf, func(i, j int) bool { return buf[i].mean > buf[j].mean })
	} else {
		sort.SliceStable(buf, func(i, j int) bool { return buf[i].mean < buf[j].mean })
	}

	n := d.compressedWeight + d.bufferedWeight
	nf := float64(n)
	sf := scaleFunction{}
	normalizer := sf.normalizer(delta, nf)

	result := make([]doubleCentroid, 0, d.compressedCap)
	cur := buf[0]
	var weightSoFar float64
	qLimit := sf.q(sf.k(0, normalizer)+1, normalizer)

	for i := 1; i < len(buf); i++ {
		c := buf[i]
		proposedWeight := float64(cur.weight) + float64(c.weight)

		var merge bool
		switch {
		case cur.mean == c.mean:
			merge = true
		case i == 1 || i == len(buf)-1:
			// Boundary clusters get a tighter effective cap: never merge
			// the very first or very last transition, so a singleton
			// extreme observation keeps weight 1.
			merge = false
		case d.opts.weightLimitMode:
			qProj := (weightSoFar + proposedWeight) / nf
			merge = proposedWeight/nf <= sf.max(qProj, normalizer)
		default:
			merge = (weightSoFar+proposedWeight)/nf <= qLimit
		}

		if merge {
			cur.add(c)
			continue
		}

		result = append(result, cur)
		weightSoFar += float64(cur.weight)
		cur = c
		if !d.opts.weightLimitMode {
			qLimit = sf.q(sf.k(weightSoFar/nf, normalizer)+1, normalizer)
		}
	}
	result = append(result, cur)

	if descending {
		for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
			result[i], result[j] = result[j], result[i]
		}
	}

	if result[0].mean < d.min {
		d.min = result[0].mean
	}
	if result[len(result)-1].mean > d.max {
		d.max = result[len(result)-1].mean
	}

	d.compressed = result
	d.compressedWeight = n
	d.buffer = d.buffer[:0]
	d.bufferedWeight = 0
	if d.opts.alternatingSort {
		d.reverseMerge = !d.reverseMerge
	}
}
