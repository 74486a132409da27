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

// Native wire format constants. Layout for a non-empty digest:
// preamble(1) serialVersion(1) sketchType(1) flags(1) k(2) unused(2)
// numCentroids(4) numBuffered(4) totalWeight(8) min(w) max(w)
// means(len*w) weights(len*8).
const (
	preambleLongsEmpty    uint8 = 1
	preambleLongsNonEmpty uint8 = 2
	serialVersion         uint8 = 1

	flagIsEmpty      uint8 = 0
	flagReverseMerge uint8 = 1

	compatTypeDouble uint8 = 1
	compatTypeFloat  uint8 = 2

	headerSizeBytes = 16 // preamble..numBuffered, before totalWeight
)

// SerializedSizeBytes returns the exact size a native serialization of
// this digest will occupy, forcing a Compress first.
func (d *Double) SerializedSizeBytes() int {
	d.Compress()
	if d.IsEmpty() {
		return 8
	}
	return headerSizeBytes + 8 + 16 + 16*len(d.compressed)
}

// WriteTo serializes d in native format to w, compressing first so the
// buffer is always empty on the wire. It satisfies io.WriterTo.
func (d *Double) WriteTo(w io.Writer) (int64, error) {
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
// bytes the caller owns (left unwritten) before the sketch payload.
func (d *Double) ToBytes(headerSize int) ([]byte, error) {
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
	binary.LittleEndian.PutUint32(buf[offset:], 0) // buffer always drained
	offset += 4

	binary.LittleEndian.PutUint64(buf[offset:], d.compressedWeight)
	offset += 8

	binary.LittleEndian.PutUint64(buf[offset:], math.Float64bits(d.min))
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:], math.Float64bits(d.max))
	offset += 8

	for _, c := range d.compressed {
		binary.LittleEndian.PutUint64(buf[offset:], math.Float64bits(c.mean))
		offset += 8
	}
	for _, c := range d.compressed {
		binary.LittleEndian.PutUint64(buf[offset:], c.weight)
		offset += 8
	}
	return buf, nil
}

// ReadDoubleFrom deserializes a Double in native or compat format from r.
func ReadDoubleFrom(r io.Reader, opts ...Option) (*Double, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, wrapIO(err)
	}
	return ReadDouble(data, opts...)
}

// ReadDouble deserializes a Double in native or compat format from data.
func ReadDouble(data []byte, opts ...Option) (*Double, error) {
	if len(data) < 3 {
		return nil, ErrInsufficientData
	}

	preamble, serialVer, skType := data[0], data[1], data[2]

	if skType != uint8(internal.FamilyEnum.TDigest.Id) {
		if preamble == 0 && serialVer == 0 && skType == 0 {
			return decodeDoubleCompat(data[3:], opts...)
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
	// data[6:8] is unused/reserved.

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
		return NewDouble(k, opts...)
	}

	if len(data) < headerSizeBytes+8 {
		return nil, ErrInsufficientData
	}
	numCentroids := binary.LittleEndian.Uint32(data[8:12])
	// data[12:16] is the buffered count, always 0 on the wire.
	declaredWeight := binary.LittleEndian.Uint64(data[16:24])

	expected := headerSizeBytes + 8 + 16 + int(numCentroids)*16
	if len(data) < expected {
		return nil, ErrInsufficientData
	}

	minVal := math.Float64frombits(binary.LittleEndian.Uint64(data[24:32]))
	maxVal := math.Float64frombits(binary.LittleEndian.Uint64(data[32:40]))
	if err := validateNaN(minVal, "min"); err != nil {
		return nil, err
	}
	if err := validateNaN(maxVal, "max"); err != nil {
		return nil, err
	}

	offset := 40
	centroids := make([]doubleCentroid, numCentroids)
	for i := range centroids {
		mean := math.Float64frombits(binary.LittleEndian.Uint64(data[offset:]))
		offset += 8
		if err := validateNaN(mean, "centroid mean"); err != nil {
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

	return newDoubleFromState(k, o, reverseMerge, minVal, maxVal, centroids, totalWeight)
}

func validateNaN(v float64, name string) error {
	if math.IsNaN(v) {
		return fmt.Errorf("%w: %s is NaN", ErrInvalidFieldValue, name)
	}
	return nil
}
