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

// Package internal holds sketch-family identifiers shared across the
// module's on-wire format. It intentionally carries nothing else: this
// module has only one sketch family, so the hashing and bit-twiddling
// helpers a multi-sketch library would put here have no home.
package internal

// Family describes a sketch's wire-format identity.
type Family struct {
	Id          int
	MaxPreLongs int
}

type families struct {
	TDigest Family
}

// FamilyEnum is the registry of sketch-family ids used on the wire.
// TDigest=20 matches the Apache DataSketches sketch-type byte, keeping
// this module's wire format byte-compatible with other implementations
// of the same family registry.
var FamilyEnum = &families{
	TDigest: Family{
		Id:          20,
		MaxPreLongs: 2,
	},
}
