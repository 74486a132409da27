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
	"encoding/binary"
	"fmt"
	"math"
)

// decodeFloatCompat mirrors decodeDoubleCompat, narrowing both the
// compatTypeDouble and compatTypeFloat sub-layouts down to float32 means
// and min/max on return.
func decodeFloatCompat(data []byte, opts ...Option) (*Float, error) {
	if len(data) < 1 {
		return nil, ErrInsufficientData
	}
	o := defaultDigestOptions()
	for _, opt := range opts {
		opt(&o)
	}

	typeFlag := data[0]
	offset := 1

	switch typeFlag {
	case compatTypeDouble:
		if len(data) < offset+28 {
			return nil, ErrInsufficientData
		}
		minVal := math.Float64frombits(binary.BigEndian.Uint64(data[offset:]))
		offset += 8
		maxVal := math.Float64frombits(binary.BigEndian.Uint64(data[offset:]))
		offset += 8
		k := uint16(math.Float64frombits(binary.BigEndian.Uint64(data[offset:])))
		offset += 8
		numCentroids := binary.BigEndian.Uint32(data[offset:])
		offset += 4

		if len(data) < offset+int(numCentroids)*16 {
			return nil, ErrInsufficientData
		}
		centroids := make([]floatCentroid, numCentroids)
		var totalWeight uint64
		for i := range centroids {
			weight := math.Float64frombits(binary.BigEndian.Uint64(data[offset:]))
			offset += 8
			mean := math.Float64frombits(binary.BigEndian.Uint64(data[offset:]))
			offset += 8
			if weight == 0 {
				return nil, fmt.Errorf("%w: centroid weight is zero", ErrInvalidFieldValue)
			}
			if err := validateFloatNaN(float32(mean), "centroid mean"); err != nil {
				return nil, err
			}
			centroids[i] = floatCentroid{mean: float32(mean), weight: uint64(weight)}
			totalWeight += uint64(weight)
		}
		return newFloatFromState(k, o, false, float32(minVal), float32(maxVal), centroids, totalWeight)

	case compatTypeFloat:
		if len(data) < offset+26 {
			return nil, ErrInsufficientData
		}
		minVal := math.Float64frombits(binary.BigEndian.Uint64(data[offset:]))
		offset += 8
		maxVal := math.Float64frombits(binary.BigEndian.Uint64(data[offset:]))
		offset += 8
		k := uint16(math.Float32frombits(binary.BigEndian.Uint32(data[offset:])))
		offset += 4
		offset += 4 // unused
		numCentroids := binary.BigEndian.Uint16(data[offset:])
		offset += 2

		if len(data) < offset+int(numCentroids)*8 {
			return nil, ErrInsufficientData
		}
		centroids := make([]floatCentroid, numCentroids)
		var totalWeight uint64
		for i := range centroids {
			weight := math.Float32frombits(binary.BigEndian.Uint32(data[offset:]))
			offset += 4
			mean := math.Float32frombits(binary.BigEndian.Uint32(data[offset:]))
			offset += 4
			if weight == 0 {
				return nil, fmt.Errorf("%w: centroid weight is zero", ErrInvalidFieldValue)
			}
			if err := validateFloatNaN(mean, "centroid mean"); err != nil {
				return nil, err
			}
			centroids[i] = floatCentroid{mean: mean, weight: uint64(weight)}
			totalWeight += uint64(weight)
		}
		return newFloatFromState(k, o, false, float32(minVal), float32(maxVal), centroids, totalWeight)

	default:
		return nil, ErrUnrecognizedCompat
	}
}
