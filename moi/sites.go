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
	"sort"

	"github.com/grailbio/base/log"
	"github.com/grailbio/bio/pileup"
	"github.com/pathogenomics/moi/encoding/vcf"
	"github.com/pkg/errors"
)

// Allele is a base call at a SNP site, in pileup enum encoding
// (pileup.BaseA..pileup.BaseT), or NoCall.  NoCall is a designed outcome,
// not an error: it marks a site the read does not cover, covers with a
// deletion or clip, covers with a base matching neither known allele, or
// covers below the base-quality floor.
type Allele byte

// NoCall is the tagged "no usable base here" alternative.
const NoCall Allele = 0xff

// alleleConflict marks a site where the two ends of a read-pair disagree.
// It is never visible outside allele merging; it tallies like NoCall.
const alleleConflict Allele = 0xfe

var charToEnum = func() (t [256]Allele) {
	for i := range t {
		t[i] = Allele(pileup.BaseX)
	}
	t['A'], t['a'] = Allele(pileup.BaseA), Allele(pileup.BaseA)
	t['C'], t['c'] = Allele(pileup.BaseC), Allele(pileup.BaseC)
	t['G'], t['g'] = Allele(pileup.BaseG), Allele(pileup.BaseG)
	t['T'], t['t'] = Allele(pileup.BaseT), Allele(pileup.BaseT)
	return
}()

// Char returns the ASCII rendering of the allele ('N' for NoCall).
func (a Allele) Char() byte {
	if a >= Allele(pileup.NBaseEnum) {
		return 'N'
	}
	return pileup.EnumToASCIITable[a]
}

// Site is one biallelic SNP.  Pos is 0-based, following the rest of the
// codebase; VCF input is converted on load.
type Site struct {
	Pos int
	Ref Allele
	Alt Allele
}

// SiteTable is the immutable per-chromosome collection of biallelic SNP
// sites.  Sites within a chromosome are position-sorted and unique.
type SiteTable struct {
	chroms []string
	sites  map[string][]Site
}

// SiteFilter restricts which VCF records enter the table.  A nil filter
// keeps everything.
type SiteFilter func(chrom string, pos0 int) bool

// NewSiteTable builds a SiteTable from VCF records.  Non-biallelic and
// non-ACGT records are dropped (they are out of scope, not errors); a
// duplicated position within a chromosome keeps the first record and logs
// the rest.  Chromosomes appear in file order.
func NewSiteTable(recs []vcf.Record, keep SiteFilter) (*SiteTable, error) {
	t := &SiteTable{sites: make(map[string][]Site)}
	nDropped := 0
	for _, rec := range recs {
		if !rec.IsBiallelicSNP() {
			nDropped++
			continue
		}
		ref := charToEnum[rec.Ref[0]]
		alt := charToEnum[rec.Alt[0][0]]
		if ref == Allele(pileup.BaseX) || alt == Allele(pileup.BaseX) {
			nDropped++
			continue
		}
		if ref == alt {
			return nil, errors.Errorf("moi.NewSiteTable: %s:%d: REF and ALT are both %c", rec.Chrom, rec.Pos, rec.Ref[0])
		}
		pos0 := rec.Pos - 1
		if keep != nil && !keep(rec.Chrom, pos0) {
			continue
		}
		if _, ok := t.sites[rec.Chrom]; !ok {
			t.chroms = append(t.chroms, rec.Chrom)
		}
		t.sites[rec.Chrom] = append(t.sites[rec.Chrom], Site{Pos: pos0, Ref: ref, Alt: alt})
	}
	if nDropped != 0 {
		log.Printf("moi.NewSiteTable: dropped %d non-biallelic/non-SNP record(s)", nDropped)
	}
	for _, chrom := range t.chroms {
		sites := t.sites[chrom]
		sort.Slice(sites, func(i, j int) bool { return sites[i].Pos < sites[j].Pos })
		dedup := sites[:1]
		for _, s := range sites[1:] {
			if s.Pos == dedup[len(dedup)-1].Pos {
				log.Printf("moi.NewSiteTable: %s:%d: duplicate site, keeping first record", chrom, s.Pos+1)
				continue
			}
			dedup = append(dedup, s)
		}
		t.sites[chrom] = dedup
	}
	return t, nil
}

// Chroms returns the chromosomes with at least one site, in file order.
func (t *SiteTable) Chroms() []string { return t.chroms }

// Sites returns the position-sorted sites for one chromosome; nil if the
// chromosome has no SNP data.
func (t *SiteTable) Sites(chrom string) []Site { return t.sites[chrom] }

// NSites returns the total number of sites across all chromosomes.
func (t *SiteTable) NSites() (n int) {
	for _, sites := range t.sites {
		n += len(sites)
	}
	return
}

// Window is a contiguous run of sites on one chromosome, as the half-open
// index range [Start, End) into the chromosome's site slice.  Every yielded
// window has at least two sites; a single site cannot distinguish
// haplotypes.
type Window struct {
	Start int
	End   int
}

// NSites returns the number of sites in the window.
func (w Window) NSites() int { return w.End - w.Start }

// windows produces the sliding per-site windows for one chromosome: the
// window anchored at site i extends through the largest j with
// pos[j]-pos[i] <= maxDist.  Anchors whose window would be degenerate
// (fewer than two sites) are skipped, so maxDist=0 yields nothing.
// maxSNPs > 0 additionally caps the number of sites per window.
func windows(sites []Site, maxDist, maxSNPs int) []Window {
	var ws []Window
	j := 0
	for i := range sites {
		if j < i {
			j = i
		}
		for j+1 < len(sites) && sites[j+1].Pos-sites[i].Pos <= maxDist {
			j++
		}
		end := j + 1
		if maxSNPs > 0 && end-i > maxSNPs {
			end = i + maxSNPs
		}
		if end-i < 2 {
			continue
		}
		ws = append(ws, Window{Start: i, End: end})
	}
	return ws
}
