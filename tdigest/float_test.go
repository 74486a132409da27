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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFloat(t *testing.T) {
	t.Run("Default K", func(t *testing.T) {
		sketch, err := NewFloat(DefaultK)
		assert.NoError(t, err)
		assert.Equal(t, uint16(DefaultK), sketch.K())
		assert.True(t, sketch.IsEmpty())
	})

	t.Run("Invalid K Too Small", func(t *testing.T) {
		_, err := NewFloat(9)
		assert.ErrorIs(t, err, ErrInvalidK)
	})
}

func TestFloat_Update(t *testing.T) {
	t.Run("Single Value", func(t *testing.T) {
		sketch, err := NewFloat(DefaultK)
		assert.NoError(t, err)

		assert.NoError(t, sketch.Update(1.0))
		assert.False(t, sketch.IsEmpty())
		assert.Equal(t, uint64(1), sketch.TotalWeight())
	})

	t.Run("NaN Returns Error", func(t *testing.T) {
		sketch, err := NewFloat(DefaultK)
		assert.NoError(t, err)

		err = sketch.Update(float32(math.NaN()))
		assert.ErrorIs(t, err, ErrNaN)
		assert.True(t, sketch.IsEmpty())
	})

	t.Run("Min Max Tracking", func(t *testing.T) {
		sketch, err := NewFloat(DefaultK)
		assert.NoError(t, err)

		assert.NoError(t, sketch.Update(5.0))
		assert.NoError(t, sketch.Update(1.0))
		assert.NoError(t, sketch.Update(10.0))

		assert.Equal(t, float32(1.0), sketch.MinValue())
		assert.Equal(t, float32(10.0), sketch.MaxValue())
	})

	t.Run("Triggers Compression", func(t *testing.T) {
		sketch, err := NewFloat(10)
		assert.NoError(t, err)

		for i := 0; i < 500; i++ {
			assert.NoError(t, sketch.Update(float32(i)))
		}
		assert.Equal(t, uint64(500), sketch.TotalWeight())
	})
}

func TestFloat_Merge(t *testing.T) {
	t.Run("Merge Two Halves", func(t *testing.T) {
		sk1, err := NewFloat(DefaultK)
		assert.NoError(t, err)
		sk2, err := NewFloat(DefaultK)
		assert.NoError(t, err)

		for i := 0; i < 500; i++ {
			assert.NoError(t, sk1.Update(float32(i)))
			assert.NoError(t, sk2.Update(float32(i + 500)))
		}

		assert.NoError(t, sk1.Merge(sk2))
		assert.Equal(t, uint64(1000), sk1.TotalWeight())
		assert.Equal(t, float32(0), sk1.MinValue())
		assert.Equal(t, float32(999), sk1.MaxValue())
	})

	t.Run("Merge Does Not Mutate Source", func(t *testing.T) {
		sk1, err := NewFloat(DefaultK)
		assert.NoError(t, err)
		sk2, err := NewFloat(DefaultK)
		assert.NoError(t, err)

		for i := 0; i < 50; i++ {
			assert.NoError(t, sk2.Update(float32(i)))
		}
		before := sk2.TotalWeight()

		assert.NoError(t, sk1.Merge(sk2))
		assert.Equal(t, before, sk2.TotalWeight())
	})
}

func TestFloat_RankAndQuantile(t *testing.T) {
	t.Run("Empty Returns NaN", func(t *testing.T) {
		sk, err := NewFloat(DefaultK)
		assert.NoError(t, err)

		rank, err := sk.Rank(0.5)
		assert.NoError(t, err)
		assert.True(t, math.IsNaN(rank))

		q, err := sk.Quantile(0.5)
		assert.NoError(t, err)
		assert.True(t, math.IsNaN(float64(q)))
	})

	t.Run("NaN Value Rejected", func(t *testing.T) {
		sk, err := NewFloat(DefaultK)
		assert.NoError(t, err)
		assert.NoError(t, sk.Update(1.0))

		_, err = sk.Rank(float32(math.NaN()))
		assert.ErrorIs(t, err, ErrNaN)
	})

	t.Run("Uniform Distribution", func(t *testing.T) {
		sk, err := NewFloat(DefaultK)
		assert.NoError(t, err)

		for i := 1; i <= 100; i++ {
			assert.NoError(t, sk.Update(float32(i)))
		}

		rank, err := sk.Rank(50.0)
		assert.NoError(t, err)
		assert.InDelta(t, 0.5, rank, 0.1)

		q, err := sk.Quantile(0.5)
		assert.NoError(t, err)
		assert.InDelta(t, 50.0, float64(q), 5.0)
	})

	t.Run("Invalid Rank", func(t *testing.T) {
		sk, err := NewFloat(DefaultK)
		assert.NoError(t, err)
		assert.NoError(t, sk.Update(1.0))

		_, err = sk.Quantile(-0.1)
		assert.ErrorIs(t, err, ErrInvalidRank)

		_, err = sk.Quantile(1.1)
		assert.ErrorIs(t, err, ErrInvalidRank)
	})
}

func TestFloat_CDFAndPMF(t *testing.T) {
	sk, err := NewFloat(DefaultK)
	assert.NoError(t, err)
	for i := 1; i <= 100; i++ {
		assert.NoError(t, sk.Update(float32(i)))
	}

	cdf, err := sk.CDF([]float32{25.0, 50.0, 75.0})
	assert.NoError(t, err)
	assert.Len(t, cdf, 4)
	assert.Equal(t, 1.0, cdf[len(cdf)-1])

	pmf, err := sk.PMF([]float32{25.0, 50.0, 75.0})
	assert.NoError(t, err)
	var sum float64
	for _, p := range pmf {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 0.001)
}

func TestFloat_String(t *testing.T) {
	sk, err := NewFloat(DefaultK)
	assert.NoError(t, err)
	for i := 0; i < 10; i++ {
		assert.NoError(t, sk.Update(float32(i)))
	}

	result := sk.String(false)
	assert.Contains(t, result, "### t-Digest summary (float)")
	assert.Contains(t, result, "Total weight       : 10")
}
