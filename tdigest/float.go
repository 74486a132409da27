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

// floatCentroid is the single-precision mirror of doubleCentroid. The
// mean is stored at float32 precision, but the weighted-mean update is
// carried out at float64 precision before truncating back down, so the
// loss of precision is confined to storage rather than compounding
// across repeated merges.
type floatCentroid struct {
	mean   float32
	weight uint64
}

func (c *floatCentroid) add(other floatCentroid) {
	c.weight += other.weight
	mean := float64(c.mean) + (float64(other.mean)-float64(c.mean))*float64(other.weight)/float64(c.weight)
	c.mean = float32(mean)
}

// Float is a t-digest specialized to float32 observations and centroid
// means, for callers that want half the memory footprint of Double at
// the cost of single-precision rounding in stored means. See Double for
// the full algorithm description; the two types share the same merge
// engine and query logic, generalized over precision.
type Float struct {
	min, max         float32
	k                uint16
	internalK        uint16
	compressed       []floatCentroid
	compressedWeight uint64
	compressedCap    int
	buffer           []floatCentroid
	bufferedWeight   uint64
	reverseMerge     bool
	opts             digestOptions
}

// NewFloat creates an empty Float with the given compression parameter.
func NewFloat(k uint16, opts ...Option) (*Float, error) {
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
	return &Float{
		min:           float32(math.Inf(1)),
		max:           float32(math.Inf(-1)),
		k:             k,
		internalK:     internalK,
		compressedCap: capacity,
		compressed:    make([]floatCentroid, 0, capacity),
		buffer:        make([]floatCentroid, 0, capacity*bufferMultiplier),
		reverseMerge:  false,
		opts:          o,
	}, nil
}

func newFloatFromState(
	k uint16,
	opts digestOptions,
	reverseMerge bool,
	min, max float32,
	compressed []floatCentroid,
	compressedWeight uint64,
) (*Float, error) {
	if k < minK {
		return nil, ErrInvalidK
	}
	internalK := k
	if opts.twoLevelCompression {
		internalK = k * twoLevelFactor
	}
	capacity := compressedCapacity(internalK)
	if cap(compressed) < capacity {
		grown := make([]floatCentroid, len(compressed), capacity)
		copy(grown, compressed)
		compressed = grown
	}
	return &Float{
		min:              min,
		max:              max,
		k:                k,
		internalK:        internalK,
		compressedCap:    capacity,
		compressed:       compressed,
		compressedWeight: compressedWeight,
		buffer:           make([]floatCentroid, 0, capacity*bufferMultiplier),
		reverseMerge:     reverseMerge,
		opts:             opts,
	}, nil
}

// K returns the compression parameter this digest was constructed with.
func (d *Float) K() uint16 { return d.k }

// IsEmpty reports whether this digest has absorbed no observations.
func (d *Float) IsEmpty() bool {
	return len(d.compressed) == 0 && len(d.buffer) == 0
}

// MinValue returns the smallest observation seen, or NaN if empty.
func (d *Float) MinValue() float32 {
	if d.IsEmpty() {
		return float32(math.NaN())
	}
	return d.min
}

// MaxValue returns the largest observation seen, or NaN if empty.
func (d *Float) MaxValue() float32 {
	if d.IsEmpty() {
		return float32(math.NaN())
	}
	return d.max
}

// TotalWeight returns the number of observations absorbed, counting
// merged-in weight.
func (d *Float) TotalWeight() uint64 {
	return d.compressedWeight + d.bufferedWeight
}

// Update absorbs a single observation as a singleton centroid of weight 1.
func (d *Float) Update(value float32) error {
	if math.IsNaN(float64(value)) {
		return ErrNaN
	}

	if len(d.buffer) == cap(d.buffer) {
		d.mergeBuffered()
	}

	d.buffer = append(d.buffer, floatCentroid{mean: value, weight: 1})
	d.bufferedWeight++
	if value < d.min {
		d.min = value
	}
	if value > d.max {
		d.max = value
	}
	return nil
}

// Merge drains other's centroids into this digest and forces
// integration, without mutating other.
func (d *Float) Merge(other *Float) error {
	if other == nil || other.IsEmpty() {
		return nil
	}

	incoming := make([]floatCentroid, 0, len(other.compressed)+len(other.buffer))
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
func (d *Float) Compress() {
	hadBuffer := len(d.buffer) > 0
	d.mergeBuffered()
	if d.opts.twoLevelCompression && hadBuffer {
		d.recompressToK()
	}
}

func (d *Float) mergeBuffered() {
	if len(d.buffer) == 0 {
		return
	}
	d.integrate(float64(d.internalK))
}

func (d *Float) recompressToK() {
	if len(d.compressed) == 0 {
		return
	}
	d.buffer = append(d.buffer, d.compressed...)
	d.bufferedWeight += d.compressedWeight
	d.compressed = d.compressed[:0]
	d.compressedWeight = 0
	d.integrate(float64(d.k))
}

func (d *Float) integrate(delta float64) {
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

	result := make([]floatCentroid, 0, d.compressedCap)
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
