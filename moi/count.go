// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package moi

// diversity reduces one window's haplotype tally to its local haplotype
// diversity: the number of distinct keys whose support passes the threshold.
//
// minCount >= 1 is an absolute bound; a key survives when its support is at
// least minCount.  minCount in (0, 1) is interpreted as a fraction of the
// window's total supporting fragments, and a key survives only when its
// support strictly exceeds that share (matching the fractional-threshold
// convention of the tools this output is compared against).
func diversity(tally map[string]int, minCount float64) int {
	n := 0
	if minCount < 1 {
		total := 0
		for _, c := range tally {
			total += c
		}
		bound := minCount * float64(total)
		for _, c := range tally {
			if float64(c) > bound {
				n++
			}
		}
		return n
	}
	for _, c := range tally {
		if float64(c) >= minCount {
			n++
		}
	}
	return n
}

// ChromResult is the reduced outcome for one chromosome.  WindowStart and
// WindowEnd are the 1-based inclusive genomic coordinates of the first
// position-ordered window achieving the maximum diversity; they are zero
// when no window supported an estimate.  Undetermined marks chromosomes
// with no SNP data at all.
type ChromResult struct {
	Chrom        string
	MOI          int
	WindowStart  int
	WindowEnd    int
	Undetermined bool
}

// windowDiversity pairs a window with its reduced diversity.
type windowDiversity struct {
	window    Window
	diversity int
}

// reduceChrom folds per-window diversities into the chromosome's MOI: the
// maximum diversity across windows, breaking ties toward the first window
// in position order.  A chromosome whose windows all reduced to zero
// surviving haplotypes, or that had no usable windows, defaults to MOI 1:
// the monoclonal assumption, since SNP data exists for it.  The fold is a
// max-reduction, so the result does not depend on the order windows were
// computed in.
func reduceChrom(chrom string, sites []Site, divs []windowDiversity) ChromResult {
	res := ChromResult{Chrom: chrom, MOI: 1}
	best := 0
	for _, wd := range divs {
		if wd.diversity > best {
			best = wd.diversity
			res.MOI = wd.diversity
			res.WindowStart = sites[wd.window.Start].Pos + 1
			res.WindowEnd = sites[wd.window.End-1].Pos + 1
		}
	}
	return res
}

// reduceOverall picks the overall MOI: the maximum across chromosomes, with
// the first chromosome (in site-table order) achieving it recorded as
// provenance.  Undetermined chromosomes never win; if every chromosome is
// undetermined, so is the overall result.
func reduceOverall(chroms []ChromResult) ChromResult {
	overall := ChromResult{Undetermined: true}
	for _, cr := range chroms {
		if cr.Undetermined {
			continue
		}
		if overall.Undetermined || cr.MOI > overall.MOI {
			overall = cr
		}
	}
	return overall
}
