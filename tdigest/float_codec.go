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
	"io"
	"math"

	"github.com/streamquantile/tdigest/internal"
)

// SerializedSizeBytes returns the exact size a native serialization of
// this digest will occupy, forcing a Compress first.
func (d *Float) SerializedSizeBytes() int {
	d.Compress()
	if d.IsEmpty() {
		return 8
	}
	return headerSizeBytes + 8 + 8 + 12*len(d.compressed)
}

// WriteTo serializes d in native format to w. Satisfies io.WriterTo.
func (d *Float) WriteTo(w io.Writer) (int64, error) {
	buf, err := d.ToBytes(0)
	if err != nil {
		return 0, err
	}
	n, werr := w.Write(buf)
	if werr != nil {
		return int64(n), wrapIO(werr)
	}
	return int64(n), nil
}

// ToBytes serializes d in native format, reserving headerSize leading
// bytes the caller owns before the sketch payload.
func (d *Float) ToBytes(headerSize int) ([]byte, error) {
	d.Compress()

	size := d.SerializedSizeBytes()
	total := headerSize + size
	if headerSize < 0 || total > maxSerializedSizeBytes {
		return nil, ErrCapacityExceeded
	}

	buf := make([]byte, total)
	offset := headerSize

	if d.IsEmpty() {
		buf[offset] = preambleLongsEmpty
	} else {
		buf[offset] = preambleLongsNonEmpty
	}
	offset++
	buf[offset] = serialVersion
	offset++
	buf[offset] = uint8(internal.FamilyEnum.TDigest.Id)
	offset++

	var flags uint8
	if d.IsEmpty() {
		flags |= 1 << flagIsEmpty
	}
	if d.reverseMerge {
		flags |= 1 << flagReverseMerge
	}
	buf[offset] = flags
	offset++

	binary.LittleEndian.PutUint16(buf[offset:], d.k)
	offset += 2
	offset += 2 // unused

	if d.IsEmpty() {
		return buf, nil
	}

	binary.LittleEndian.PutUint32(buf[offset:], uint32(len(d.compressed)))
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], 0)
	offset += 4

	binary.LittleEndian.PutUint64(buf[offset:], d.compressedWeight)
	offset += 8

	binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(d.min))
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(d.max))
	offset += 4

	for _, c := range d.compressed {
		binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(c.mean))
		offset += 4
	}
	for _, c := range d.compressed {
		binary.LittleEndian.PutUint64(buf[offset:], c.weight)
		offset += 8
	}
	return buf, nil
}

// ReadFloatFrom deserializes a Float in native or compat format from r.
func ReadFloatFrom(r io.Reader, opts ...Option) (*Float, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, wrapIO(err)
	}
	return ReadFloat(data, opts...)
}

// ReadFloat deserializes a Float in native or compat format from data.
func ReadFloat(data []byte, opts ...Option) (*Float, error) {
	if len(data) < 3 {
		return nil, ErrInsufficientData
	}

	preamble, serialVer, skType := data[0], data[1], data[2]

	if skType != uint8(internal.FamilyEnum.TDigest.Id) {
		if preamble == 0 && serialVer == 0 && skType == 0 {
			return decodeFloatCompat(data[3:], opts...)
		}
		return nil, ErrSketchTypeMismatch
	}
	if serialVer != serialVersion {
		return nil, ErrSerialVersionMismatch
	}
	if len(data) < 8 {
		return nil, ErrInsufficientData
	}

	flags := data[3]
	k := binary.LittleEndian.Uint16(data[4:6])

	isEmpty := flags&(1<<flagIsEmpty) != 0
	reverseMerge := flags&(1<<flagReverseMerge) != 0

	expectedPreamble := preambleLongsNonEmpty
	if isEmpty {
		expectedPreamble = preambleLongsEmpty
	}
	if preamble != expectedPreamble {
		return nil, ErrPreambleMismatch
	}

	o := defaultDigestOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if isEmpty {
		return NewFloat(k, opts...)
	}

	if len(data) < headerSizeBytes+8 {
		return nil, ErrInsufficientData
	}
	numCentroids := binary.LittleEndian.Uint32(data[8:12])
	declaredWeight := binary.LittleEndian.Uint64(data[16:24])

	expected := headerSizeBytes + 8 + 8 + int(numCentroids)*12
	if len(data) < expected {
		return nil, ErrInsufficientData
	}

	minVal := math.Float32frombits(binary.LittleEndian.Uint32(data[24:28]))
	maxVal := math.Float32frombits(binary.LittleEndian.Uint32(data[28:32]))
	if err := validateFloatNaN(minVal, "min"); err != nil {
		return nil, err
	}
	if err := validateFloatNaN(maxVal, "max"); err != nil {
		return nil, err
	}

	offset := 32
	centroids := make([]floatCentroid, numCentroids)
	for i := range centroids {
		mean := math.Float32frombits(binary.LittleEndian.Uint32(data[offset:]))
		offset += 4
		if err := validateFloatNaN(mean, "centroid mean"); err != nil {
			return nil, err
		}
		centroids[i].mean = mean
	}
	var totalWeight uint64
	for i := range centroids {
		weight := binary.LittleEndian.Uint64(data[offset:])
		offset += 8
		if weight == 0 {
			return nil, fmt.Errorf("%w: centroid weight is zero", ErrInvalidFieldValue)
		}
		centroids[i].weight = weight
		totalWeight += weight
	}
	if totalWeight != declaredWeight {
		return nil, fmt.Errorf("%w: declared total weight %d does not match sum of centroid weights %d", ErrInvalidFieldValue, declaredWeight, totalWeight)
	}

	return newFloatFromState(k, o, reverseMerge, minVal, maxVal, centroids, totalWeight)
}

func validateFloatNaN(v float32, name string) error {
	if math.IsNaN(float64(v)) {
		return fmt.Errorf("%w: %s is NaN", ErrInvalidFieldValue, name)
	}
	return nil
}
