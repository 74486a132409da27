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

// decodeDoubleCompat parses the legacy big-endian layout carried by
// older writers. The first byte after the zeroed native-format header
// picks the sub-layout: compatTypeDouble stores full double-precision
// fields, compatTypeFloat packs k and centroid data as float32. A
// digest read this way is promoted to native on its next write;
// reverse_merge is reset false since the compat layout does not carry
// it.
func decodeDoubleCompat(data []byte, opts ...Option) (*Double, error) {
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
		centroids := make([]doubleCentroid, numCentroids)
		var totalWeight uint64
		for i := range centroids {
			weight := math.Float64frombits(binary.BigEndian.Uint64(data[offset:]))
			offset += 8
			mean := math.Float64frombits(binary.BigEndian.Uint64(data[offset:]))
			offset += 8
			if weight == 0 {
				return nil, fmt.Errorf("%w: centroid weight is zero", ErrInvalidFieldValue)
			}
			if err := validateNaN(mean, "centroid mean"); err != nil {
				return nil, err
			}
			centroids[i] = doubleCentroid{mean: mean, weight: uint64(weight)}
			totalWeight += uint64(weight)
		}
		return newDoubleFromState(k, o, false, minVal, maxVal, centroids, totalWeight)

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
		centroids := make([]doubleCentroid, numCentroids)
		var totalWeight uint64
		for i := range centroids {
			weight := math.Float32frombits(binary.BigEndian.Uint32(data[offset:]))
			offset += 4
			mean := math.Float32frombits(binary.BigEndian.Uint32(data[offset:]))
			offset += 4
			if weight == 0 {
				return nil, fmt.Errorf("%w: centroid weight is zero", ErrInvalidFieldValue)
			}
			if err := validateNaN(float64(mean), "centroid mean"); err != nil {
				return nil, err
			}
			centroids[i] = doubleCentroid{mean: float64(mean), weight: uint64(weight)}
			totalWeight += uint64(weight)
		}
		return newDoubleFromState(k, o, false, minVal, maxVal, centroids, totalWeight)

	default:
		return nil, ErrUnrecognizedCompat
	}
}
