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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloat_RoundTrip(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		sk, err := NewFloat(100)
		assert.NoError(t, err)

		b, err := sk.ToBytes(0)
		assert.NoError(t, err)
		assert.Equal(t, 8, len(b))

		decoded, err := ReadFloat(b)
		assert.NoError(t, err)
		assert.True(t, decoded.IsEmpty())
	})

	t.Run("Single Value", func(t *testing.T) {
		sk, err := NewFloat(DefaultK)
		assert.NoError(t, err)
		assert.NoError(t, sk.Update(123))

		b, err := sk.ToBytes(0)
		assert.NoError(t, err)

		decoded, err := ReadFloat(b)
		assert.NoError(t, err)
		assert.Equal(t, uint64(1), decoded.TotalWeight())
		assert.Equal(t, float32(123), decoded.MinValue())
		assert.Equal(t, float32(123), decoded.MaxValue())
	})

	t.Run("Many Values Preserve Queries", func(t *testing.T) {
		sk, err := NewFloat(100)
		assert.NoError(t, err)
		for i := 0; i < 5000; i++ {
			assert.NoError(t, sk.Update(float32(i)))
		}

		b, err := sk.ToBytes(0)
		assert.NoError(t, err)

		decoded, err := ReadFloat(b)
		assert.NoError(t, err)
		assert.Equal(t, sk.TotalWeight(), decoded.TotalWeight())
		assert.Equal(t, sk.MinValue(), decoded.MinValue())
		assert.Equal(t, sk.MaxValue(), decoded.MaxValue())

		wantQuantile, err := sk.Quantile(0.5)
		assert.NoError(t, err)
		gotQuantile, err := decoded.Quantile(0.5)
		assert.NoError(t, err)
		assert.Equal(t, wantQuantile, gotQuantile)
	})

	t.Run("WriteTo And ReadFloatFrom", func(t *testing.T) {
		sk, err := NewFloat(100)
		assert.NoError(t, err)
		for i := 0; i < 300; i++ {
			assert.NoError(t, sk.Update(float32(i)))
		}

		var buf bytes.Buffer
		n, err := sk.WriteTo(&buf)
		assert.NoError(t, err)
		assert.Equal(t, int64(buf.Len()), n)

		decoded, err := ReadFloatFrom(&buf)
		assert.NoError(t, err)
		assert.Equal(t, sk.TotalWeight(), decoded.TotalWeight())
	})
}

func TestFloat_SerializedSizeMatchesLayout(t *testing.T) {
	sk, err := NewFloat(100)
	assert.NoError(t, err)
	for i := 0; i < 300; i++ {
		assert.NoError(t, sk.Update(float32(i)))
	}
	sk.Compress()

	want := headerSizeBytes + 8 + 8 + 12*len(sk.compressed)
	assert.Equal(t, want, sk.SerializedSizeBytes())

	b, err := sk.ToBytes(0)
	assert.NoError(t, err)
	assert.Equal(t, want, len(b))
}

func TestReadFloat_InvalidData(t *testing.T) {
	t.Run("Too Short", func(t *testing.T) {
		_, err := ReadFloat([]byte{1, 2})
		assert.ErrorIs(t, err, ErrInsufficientData)
	})

	t.Run("Sketch Type Mismatch", func(t *testing.T) {
		sk, err := NewFloat(100)
		assert.NoError(t, err)
		assert.NoError(t, sk.Update(1.0))
		data, err := sk.ToBytes(0)
		assert.NoError(t, err)
		data[2] = 99

		_, err = ReadFloat(data)
		assert.ErrorIs(t, err, ErrSketchTypeMismatch)
	})
}

func TestReadFloat_CompatFormat(t *testing.T) {
	t.Run("Compat Double Sub-layout", func(t *testing.T) {
		data := buildCompatTypeDoubleBytes(100, 1.0, 30.0, []compatCentroid{
			{weight: 1, mean: 1.0},
			{weight: 2, mean: 10.0},
			{weight: 1, mean: 30.0},
		})

		sk, err := ReadFloat(data)
		assert.NoError(t, err)
		assert.Equal(t, uint16(100), sk.K())
		assert.Equal(t, uint64(4), sk.TotalWeight())
		assert.Equal(t, float32(1.0), sk.MinValue())
		assert.Equal(t, float32(30.0), sk.MaxValue())
	})

	t.Run("Compat Float Sub-layout", func(t *testing.T) {
		data := buildCompatTypeFloatBytes(50, 0.0, 100.0, []compatCentroid{
			{weight: 1, mean: 0.0},
			{weight: 3, mean: 50.0},
			{weight: 1, mean: 100.0},
		})

		sk, err := ReadFloat(data)
		assert.NoError(t, err)
		assert.Equal(t, uint16(50), sk.K())
		assert.Equal(t, uint64(5), sk.TotalWeight())

		quantile, err := sk.Quantile(0.5)
		assert.NoError(t, err)
		assert.InDelta(t, float32(50.0), quantile, 50.0)
	})

	t.Run("Compat Centroid Weight Zero Rejected", func(t *testing.T) {
		data := buildCompatTypeFloatBytes(50, 0.0, 1.0, []compatCentroid{{weight: 0, mean: 0.0}})
		_, err := ReadFloat(data)
		assert.ErrorIs(t, err, ErrInvalidFieldValue)
	})
}
