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

import (
	"github.com/grailbio/hts/sam"
)

// assembler accumulates per-fragment allele tuples for one window.  Reads
// sharing a QNAME (the two ends of a pair, or split alignments that survived
// upstream filters) are merged into a single fragment: a site called by
// either end is called for the fragment, and a site where the ends disagree
// becomes uncallable for the fragment.
//
// An assembler is single-window, single-goroutine state; windows are
// independent, so concurrent windows each get their own assembler.
type assembler struct {
	sites       []Site
	minBaseQual byte
	frags       map[string][]Allele

	// scratch buffers, reused across Add calls
	seq8  []byte
	calls []Allele
}

func newAssembler(sites []Site, minBaseQual byte) *assembler {
	return &assembler{
		sites:       sites,
		minBaseQual: minBaseQual,
		frags:       make(map[string][]Allele),
		calls:       make([]Allele, len(sites)),
	}
}

// add extracts the read's alleles at the window's sites and merges them into
// the read's fragment.
func (a *assembler) add(samr *sam.Record) {
	seq8 := unpackSeq8(&a.seq8, samr)
	callSites(a.calls, samr, seq8, a.sites, a.minBaseQual)
	frag, ok := a.frags[samr.Name]
	if !ok {
		frag = make([]Allele, len(a.sites))
		copy(frag, a.calls)
		// samr.Name aliases the record's free-pool scratch buffer, which is
		// overwritten once the record is recycled.  The map key must outlive
		// the record, so store a fresh copy of the bytes.
		a.frags[string(append([]byte(nil), samr.Name...))] = frag
		return
	}
	for i, c := range a.calls {
		switch {
		case c == NoCall:
		case frag[i] == NoCall:
			frag[i] = c
		case frag[i] != c:
			// Mates disagree; neither base is trustworthy.
			frag[i] = alleleConflict
		}
	}
}

// tally returns haplotype-key -> supporting-fragment-count for the window.
// A fragment with any uncalled or conflicted site is excluded outright;
// partial haplotypes would bias counts toward shorter keys.
func (a *assembler) tally() map[string]int {
	counts := make(map[string]int)
	key := make([]byte, len(a.sites))
	for _, frag := range a.frags {
		complete := true
		for i, c := range frag {
			if c == NoCall || c == alleleConflict {
				complete = false
				break
			}
			key[i] = c.Char()
		}
		if complete {
			counts[string(key)]++
		}
	}
	return counts
}
