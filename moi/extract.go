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
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/bio/biosimd"
	gbam "github.com/grailbio/bio/encoding/bam"
	"github.com/grailbio/bio/pileup"
	"github.com/grailbio/hts/sam"
)

// unpackSeq8 expands the record's packed 4-bit Seq field into one byte per
// base, reusing buf's storage.
func unpackSeq8(buf *[]byte, samr *sam.Record) []byte {
	lSeq := len(samr.Qual)
	gunsafe.ExtendBytes(buf, lSeq)
	if lSeq != 0 {
		biosimd.UnpackSeq(*buf, gbam.UnsafeDoubletsToBytes(samr.Seq.Seq))
	}
	return *buf
}

// callSites writes the read's allele at each site into out (len(out) ==
// len(sites); sites position-sorted).  Entries the read cannot call are left
// as NoCall: sites outside the aligned span, sites under
// insertions/deletions/clips, bases below minBaseQual, and bases matching
// neither known allele.  seq8 must be the unpacked sequence of samr.
//
// This is a pure function of its inputs; it is safe to run concurrently
// across reads.
func callSites(out []Allele, samr *sam.Record, seq8 []byte, sites []Site, minBaseQual byte) {
	for i := range out {
		out[i] = NoCall
	}
	posInRef := samr.Pos
	posInRead := 0
	qual := samr.Qual
	// sIdx tracks the first site not yet behind posInRef.
	sIdx := 0
	for _, co := range samr.Cigar {
		if sIdx == len(sites) {
			return
		}
		cLen := co.Len()
		switch co.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			nextPosInRef := posInRef + cLen
			for sIdx < len(sites) && sites[sIdx].Pos < nextPosInRef {
				site := sites[sIdx]
				if site.Pos >= posInRef {
					readIdx := posInRead + (site.Pos - posInRef)
					if readIdx < len(seq8) && qual[readIdx] >= minBaseQual {
						base := Allele(pileup.Seq8ToEnumTable[seq8[readIdx]])
						if base == site.Ref || base == site.Alt {
							out[sIdx] = base
						}
					}
				}
				sIdx++
			}
			posInRef = nextPosInRef
			posInRead += cLen
		case sam.CigarInsertion, sam.CigarSoftClipped:
			posInRead += cLen
		case sam.CigarDeletion, sam.CigarSkipped:
			// Sites under the deletion stay NoCall.
			posInRef += cLen
			for sIdx < len(sites) && sites[sIdx].Pos < posInRef {
				sIdx++
			}
		case sam.CigarHardClipped, sam.CigarPadded:
			// consumes neither read nor reference
		default:
			// CigarBack and friends don't appear in the data we handle; treat
			// the rest of the read as uncallable rather than guessing.
			return
		}
	}
}
