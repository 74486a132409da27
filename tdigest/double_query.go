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
	"fmt"
	"math"
	"sort"
	"strings"
)

// Rank returns the approximate normalized rank of value: the fraction of
// absorbed observations less than or equal to value, in [0,1]. Rank is
// NaN for an empty digest and an error for a NaN value.
func (d *Double) Rank(value float64) (float64, error) {
	if math.IsNaN(value) {
		return math.NaN(), ErrNaN
	}
	if d.IsEmpty() {
		return math.NaN(), nil
	}
	if value < d.min {
		return 0, nil
	}
	if value > d.max {
		return 1, nil
	}

	d.Compress()

	if len(d.compressed) == 1 {
		return 0.5, nil
	}

	n := float64(d.compressedWeight)

	firstMean := d.compressed[0].mean
	if value < firstMean {
		if value == d.min {
			return 0.5 / n, nil
		}
		span := firstMean - d.min
		if span <= 0 {
			return 0, nil
		}
		return (1.0 + (value-d.min)/span*(float64(d.compressed[0].weight)/2.0-1.0)) / n, nil
	}

	lastMean := d.compressed[len(d.compressed)-1].mean
	if value > lastMean {
		if value == d.max {
			return 1.0 - 0.5/n, nil
		}
		span := d.max - lastMean
		if span <= 0 {
			return 1, nil
		}
		last := d.compressed[len(d.compressed)-1]
		return 1.0 - (1.0+(d.max-value)/span*(float64(last.weight)/2.0-1.0))/n, nil
	}

	lowerIdx := sort.Search(len(d.compressed), func(i int) bool { return d.compressed[i].mean >= value })
	upperIdx := sort.Search(len(d.compressed), func(i int) bool { return d.compressed[i].mean > value })

	if value < d.compressed[lowerIdx].mean && lowerIdx > 0 {
		lowerIdx--
	}
	if upperIdx == len(d.compressed) || !(d.compressed[upperIdx-1].mean < value) {
		upperIdx--
	}

	var weightBelow float64
	for i := 0; i < lowerIdx; i++ {
		weightBelow += float64(d.compressed[i].weight)
	}
	weightBelow += float64(d.compressed[lowerIdx].weight) / 2.0

	var weightDelta float64
	for i := lowerIdx; i < upperIdx; i++ {
		weightDelta += float64(d.compressed[i].weight)
	}
	weightDelta -= float64(d.compressed[lowerIdx].weight) / 2.0
	weightDelta += float64(d.compressed[upperIdx].weight) / 2.0

	span := d.compressed[upperIdx].mean - d.compressed[lowerIdx].mean
	if span > 0 {
		return (weightBelow + weightDelta*(value-d.compressed[lowerIdx].mean)/span) / n, nil
	}
	return (weightBelow + weightDelta/2.0) / n, nil
}

// Quantile returns the value at the given normalized rank, the inverse of
// Rank. Quantile is NaN for an empty digest; rank outside [0,1] is an
// InvalidArgument error.
func (d *Double) Quantile(rank float64) (float64, error) {
	if math.IsNaN(rank) || rank < 0.0 || rank > 1.0 {
		return math.NaN(), ErrInvalidRank
	}
	if d.IsEmpty() {
		return math.NaN(), nil
	}

	d.Compress()

	if rank == 0 {
		return d.min, nil
	}
	if rank == 1 {
		return d.max, nil
	}
	if len(d.compressed) == 1 {
		return d.compressed[0].mean, nil
	}

	weight := rank * float64(d.compressedWeight)
	if weight < 1 {
		return d.min, nil
	}
	if weight > float64(d.compressedWeight)-1.0 {
		return d.max, nil
	}

	firstWeight := float64(d.compressed[0].weight)
	if firstWeight > 1 && weight < firstWeight/2.0 {
		return d.min + (weight-1.0)/(firstWeight/2.0-1.0)*(d.compressed[0].mean-d.min), nil
	}

	last := d.compressed[len(d.compressed)-1]
	lastWeight := float64(last.weight)
	if lastWeight > 1 && float64(d.compressedWeight)-weight <= lastWeight/2.0 {
		return d.max - (float64(d.compressedWeight)-weight-1.0)/(lastWeight/2.0-1.0)*(d.max-last.mean), nil
	}

	weightSoFar := firstWeight / 2.0
	for i := 0; i < len(d.compressed)-1; i++ {
		dw := (float64(d.compressed[i].weight) + float64(d.compressed[i+1].weight)) / 2.0
		if weightSoFar+dw > weight {
			var leftWeight, rightWeight float64
			if d.compressed[i].weight == 1 {
				if weight-weightSoFar < 0.5 {
					return d.compressed[i].mean, nil
				}
				leftWeight = 0.5
			}
			if d.compressed[i+1].weight == 1 {
				if weightSoFar+dw-weight <= 0.5 {
					return d.compressed[i+1].mean, nil
				}
				rightWeight = 0.5
			}
			w1 := weight - weightSoFar - leftWeight
			w2 := weightSoFar + dw - weight - rightWeight
			return weightedAverage(d.compressed[i].mean, w2, d.compressed[i+1].mean, w1), nil
		}
		weightSoFar += dw
	}

	w1 := weight - float64(d.compressedWeight) - lastWeight/2.0
	w2 := lastWeight/2.0 - w1
	return weightedAverage(last.mean, w1, d.max, w2), nil
}

// CDF returns, for each split point (sorted, unique, non-NaN), the
// cumulative rank at that point, followed by a trailing 1 for the tail
// above the last split point.
func (d *Double) CDF(splitPoints []float64) ([]float64, error) {
	if err := validateSplitPoints(splitPoints); err != nil {
		return nil, err
	}
	ranks := make([]float64, 0, len(splitPoints)+1)
	for _, sp := range splitPoints {
		r, err := d.Rank(sp)
		if err != nil {
			return nil, err
		}
		ranks = append(ranks, r)
	}
	ranks = append(ranks, 1)
	return ranks, nil
}

// PMF returns the probability mass between consecutive split points,
// derived from CDF.
func (d *Double) PMF(splitPoints []float64) ([]float64, error) {
	buckets, err := d.CDF(splitPoints)
	if err != nil {
		return nil, err
	}
	for i := len(splitPoints); i > 0; i-- {
		buckets[i] -= buckets[i-1]
	}
	return buckets, nil
}

// String renders a human-readable diagnostic summary, optionally
// including every centroid and buffered value.
func (d *Double) String(includeCentroids bool) string {
	var sb strings.Builder
	sb.WriteString("### t-Digest summary (double):\n")
	fmt.Fprintf(&sb, "   k                  : %d\n", d.k)
	fmt.Fprintf(&sb, "   internal_k         : %d\n", d.internalK)
	fmt.Fprintf(&sb, "   Centroids          : %d\n", len(d.compressed))
	fmt.Fprintf(&sb, "   Buffered           : %d\n", len(d.buffer))
	fmt.Fprintf(&sb, "   Centroids weight   : %d\n", d.compressedWeight)
	fmt.Fprintf(&sb, "   Total weight       : %d\n", d.TotalWeight())
	fmt.Fprintf(&sb, "   Reverse merge      : %v\n", d.reverseMerge)
	if !d.IsEmpty() {
		fmt.Fprintf(&sb, "   Min                : %v\n", d.min)
		fmt.Fprintf(&sb, "   Max                : %v\n", d.max)
	}
	sb.WriteString("### End t-Digest summary\n")

	if includeCentroids {
		if len(d.compressed) > 0 {
			sb.WriteString("Centroids:\n")
			for i, c := range d.compressed {
				fmt.Fprintf(&sb, "%d: %v, %d\n", i, c.mean, c.weight)
			}
		}
		if len(d.buffer) > 0 {
			sb.WriteString("Buffer:\n")
			for i, c := range d.buffer {
				fmt.Fprintf(&sb, "%d: %v, %d\n", i, c.mean, c.weight)
			}
		}
	}
	return sb.String()
}

// weightedAverage computes (x1*w1+x2*w2)/(w1+w2). Unlike the centroid
// merge update, there is no cancellation concern here: x1 and x2 are
// already compressed-centroid means with well-separated weights.
func weightedAverage(x1, w1, x2, w2 float64) float64 {
	return (x1*w1 + x2*w2) / (w1 + w2)
}

func validateSplitPoints(values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) {
			return fmt.Errorf("%w: split point %d is NaN", ErrNaN, i)
		}
		if i < len(values)-1 && !(v < values[i+1]) {
			return fmt.Errorf("%w: split points must be unique and increasing", ErrInvalidFieldValue)
		}
	}
	return nil
}
