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
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/stat/distuv"
)

// rankErrorBound returns how far a digest's reported rank for samples[i]
// may stray from the true empirical rank i/(n-1), tightening toward the
// tails where t-digest concentrates its resolution.
func rankErrorBound(trueRank float64) float64 {
	tail := math.Min(trueRank, 1-trueRank)
	if tail < 0.01 {
		return 0.002
	}
	return 0.02
}

func TestAccuracy_UniformDistribution(t *testing.T) {
	rng := distuv.Uniform{Min: 0, Max: 1000, Src: nil}
	n := 100000
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = rng.Rand()
	}

	sk, err := NewDouble(200)
	assert.NoError(t, err)
	for _, v := range samples {
		assert.NoError(t, sk.Update(v))
	}

	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	for _, frac := range []float64{0.01, 0.1, 0.25, 0.5, 0.75, 0.9, 0.99} {
		idx := int(frac * float64(n-1))
		want := sorted[idx]

		rank, err := sk.Rank(want)
		assert.NoError(t, err)
		assert.InDelta(t, frac, rank, rankErrorBound(frac))
	}
}

func TestAccuracy_NormalDistributionTailsTighterThanCenter(t *testing.T) {
	rng := distuv.Normal{Mu: 0, Sigma: 1, Src: nil}
	n := 50000
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = rng.Rand()
	}

	sk, err := NewDouble(200)
	assert.NoError(t, err)
	for _, v := range samples {
		assert.NoError(t, sk.Update(v))
	}

	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	errAt := func(frac float64) float64 {
		idx := int(frac * float64(n-1))
		rank, err := sk.Rank(sorted[idx])
		assert.NoError(t, err)
		return math.Abs(rank - frac)
	}

	tailErr := errAt(0.001)
	centerErr := errAt(0.5)
	assert.LessOrEqual(t, tailErr, centerErr+0.01)
}

func TestAccuracy_MergeCommutesWithAccuracyBound(t *testing.T) {
	rng := distuv.Uniform{Min: 0, Max: 1, Src: nil}
	n := 20000
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = rng.Rand()
	}

	direct, err := NewDouble(200)
	assert.NoError(t, err)
	for _, v := range samples {
		assert.NoError(t, direct.Update(v))
	}

	half := n / 2
	a, err := NewDouble(200)
	assert.NoError(t, err)
	b, err := NewDouble(200)
	assert.NoError(t, err)
	for i, v := range samples {
		if i < half {
			assert.NoError(t, a.Update(v))
		} else {
			assert.NoError(t, b.Update(v))
		}
	}
	assert.NoError(t, a.Merge(b))

	for _, q := range []float64{0.1, 0.5, 0.9} {
		directQ, err := direct.Quantile(q)
		assert.NoError(t, err)
		mergedQ, err := a.Quantile(q)
		assert.NoError(t, err)
		assert.InDelta(t, directQ, mergedQ, 0.02)
	}
}
