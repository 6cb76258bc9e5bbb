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
	"testing"

	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil/assert"
)

func TestAssemblerSingleReads(t *testing.T) {
	sites := []Site{site(100, 'A', 'G'), site(102, 'C', 'T')}
	asm := newAssembler(sites, 0)
	// Two reads showing A..C, one showing G..T, one with a no-call in the
	// middle (third base at site 102).
	asm.add(makeRead("r1", 100, "ACC", 30, nil))
	asm.add(makeRead("r2", 99, "TACCT", 30, nil))
	asm.add(makeRead("r3", 100, "GCT", 30, nil))
	asm.add(makeRead("r4", 100, "ACA", 30, nil))
	assert.EQ(t, asm.tally(), map[string]int{"AC": 2, "GT": 1})
}

func TestAssemblerPairUnion(t *testing.T) {
	sites := []Site{site(100, 'A', 'G'), site(200, 'C', 'T')}
	asm := newAssembler(sites, 0)
	// Mates of one fragment each cover one site; the union is a complete
	// haplotype.
	asm.add(makeRead("frag", 100, "AGG", 30, nil))
	asm.add(makeRead("frag", 199, "GCG", 30, nil))
	assert.EQ(t, asm.tally(), map[string]int{"AC": 1})
}

func TestAssemblerPairConflict(t *testing.T) {
	sites := []Site{site(100, 'A', 'G'), site(102, 'C', 'T')}
	asm := newAssembler(sites, 0)
	// Mates overlap both sites but disagree at the first; the fragment is
	// dropped even though the second site agrees.
	asm.add(makeRead("frag", 100, "ACC", 30, nil))
	asm.add(makeRead("frag", 100, "GCC", 30, nil))
	assert.EQ(t, asm.tally(), map[string]int{})
}

func TestAssemblerPairAgreement(t *testing.T) {
	sites := []Site{site(100, 'A', 'G'), site(102, 'C', 'T')}
	asm := newAssembler(sites, 0)
	// Overlapping mates that agree count once, not twice.
	asm.add(makeRead("frag", 100, "ACC", 30, nil))
	asm.add(makeRead("frag", 100, "ACC", 30, nil))
	asm.add(makeRead("other", 100, "ACC", 30, nil))
	assert.EQ(t, asm.tally(), map[string]int{"AC": 2})
}

func TestAssemblerIncompleteExcluded(t *testing.T) {
	sites := []Site{site(100, 'A', 'G'), site(300, 'C', 'T')}
	asm := newAssembler(sites, 0)
	// Covers only the first site; partial haplotypes are never tallied.
	asm.add(makeRead("r1", 100, "AAA", 30, nil))
	assert.EQ(t, asm.tally(), map[string]int{})
}

// BAM iterators hand out free-pool records whose Name aliases a reusable
// scratch buffer; recycling a record rewrites those bytes.  The fragment map
// must keep working after the buffer behind an earlier read's name is reused
// for an unrelated name.
func TestAssemblerNameOutlivesRecordBuffer(t *testing.T) {
	sites := []Site{site(100, 'A', 'G'), site(200, 'C', 'T')}
	asm := newAssembler(sites, 0)
	scratch := []byte("frag_x")
	asm.add(makeRead(gunsafe.BytesToString(scratch), 100, "AGG", 30, nil))
	// The record is recycled: the same buffer now names a different fragment.
	copy(scratch, "frag_y")
	asm.add(makeRead(gunsafe.BytesToString(scratch), 100, "GGG", 30, nil))
	// frag_x's mate arrives with its own buffer and must still find its pair.
	asm.add(makeRead("frag_x", 199, "GCG", 30, nil))
	// frag_x resolves to AC; frag_y covers only the first site and is dropped.
	assert.EQ(t, asm.tally(), map[string]int{"AC": 1})
}

func TestAssemblerScratchReuse(t *testing.T) {
	sites := []Site{site(10, 'A', 'G')}
	asm := newAssembler(sites, 0)
	var recs []*sam.Record
	for i := 0; i < 3; i++ {
		recs = append(recs, makeRead("r", 10, "A", 30, nil))
	}
	for _, r := range recs {
		asm.add(r)
	}
	// Same QNAME, all agreeing: one fragment.
	assert.EQ(t, asm.tally(), map[string]int{"A": 1})
}
