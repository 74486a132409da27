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

// Package tdigest implements the t-digest streaming quantile sketch
// described by Dunning and Ertl in "Computing Extremely Accurate
// Quantiles Using t-Digests". A digest absorbs an unbounded stream of
// observations with memory bounded by its compression parameter k, and
// answers approximate rank and quantile queries with tighter accuracy
// near the tails of the distribution than in the middle.
//
// Double and Float give a choice of centroid-mean precision; pick
// Double unless the memory savings of float32 means matter more than
// the extra rounding. Neither type is safe for concurrent use: callers
// that ingest from multiple goroutines should give each producer its
// own digest and Merge them at a join point.
package tdigest
