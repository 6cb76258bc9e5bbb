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

// Package moi estimates the multiplicity of infection (MOI) of a sample:
// the number of genetically distinct clones present, inferred from how many
// distinct allele combinations ("haplotypes") well-supported read groups
// show across windows of nearby biallelic SNPs.
//
// The pipeline is: load SNP sites from a VCF, slide a per-SNP window over
// each chromosome (window span bounded by -maxdist), extract each
// read(-pair)'s alleles at the window's sites from the BAM/PAM, tally
// complete haplotypes, drop weakly supported ones, and report the maximum
// surviving haplotype count per chromosome and overall.
package moi

import (
	"context"
	"runtime"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	gbam "github.com/grailbio/bio/encoding/bam"
	"github.com/grailbio/bio/encoding/bamprovider"
	"github.com/grailbio/bio/interval"
	"github.com/grailbio/hts/sam"
	"github.com/pathogenomics/moi/encoding/vcf"
	"github.com/pkg/errors"
)

// ErrNoData marks a chromosome-level "nothing to estimate from" outcome.
// It is recovered locally (the chromosome reports a degenerate result) and
// logged, never returned from Estimate.
var ErrNoData = errors.New("no SNP data")

type Opts struct {
	// Commandline options.
	VCFPath       string
	BedPath       string
	Region        string
	BamIndexPath  string
	MaxDist       int
	MinCount      float64
	MaxWindowSNPs int
	Mapq          int
	MinBaseQual   int
	FlagExclude   int
	MaxReadSpan   int
	Parallelism   int
}

// DefaultOpts carries the defaults shared between the library and the
// bio-moi flag definitions.  MinCount values below 1 are fractions of a
// window's total supporting fragments rather than absolute counts.
var DefaultOpts = Opts{
	MaxDist:       500,
	MinCount:      10,
	MaxWindowSNPs: 0,
	Mapq:          10,
	MinBaseQual:   12,
	FlagExclude:   0xf00,
	MaxReadSpan:   511,
	Parallelism:   0,
}

// validate rejects configurations before any input is touched, and fills in
// runtime-dependent defaults.
func (o *Opts) validate() error {
	if o.MaxDist < 0 {
		return errors.Errorf("moi: invalid maxdist %d; must be >= 0", o.MaxDist)
	}
	if o.MinCount <= 0 {
		return errors.Errorf("moi: invalid min-count %g; must be a positive count, or a fraction in (0, 1)", o.MinCount)
	}
	if o.MaxWindowSNPs < 0 {
		return errors.Errorf("moi: invalid max-window-snps %d; must be >= 0 (0 = unlimited)", o.MaxWindowSNPs)
	}
	if o.MaxReadSpan < 1 {
		return errors.Errorf("moi: invalid max-read-span %d; must be >= 1", o.MaxReadSpan)
	}
	if o.Parallelism <= 0 {
		o.Parallelism = runtime.NumCPU()
	}
	return nil
}

// siteFilter builds the -bed/-region restriction, if any.
func siteFilter(opts *Opts) (SiteFilter, error) {
	if opts.BedPath != "" && opts.Region != "" {
		return nil, errors.New("moi: -bed and -region are mutually exclusive")
	}
	if opts.BedPath != "" {
		bed, err := interval.NewBEDUnionFromPath(opts.BedPath, interval.NewBEDOpts{})
		if err != nil {
			return nil, err
		}
		return func(chrom string, pos0 int) bool {
			return bed.ContainsByName(chrom, interval.PosType(pos0))
		}, nil
	}
	if opts.Region != "" {
		entry, err := interval.ParseRegionString(opts.Region)
		if err != nil {
			return nil, err
		}
		return func(chrom string, pos0 int) bool {
			return chrom == entry.RefName && interval.PosType(pos0) >= entry.Start0 && interval.PosType(pos0) < entry.End
		}, nil
	}
	return nil, nil
}

// processWindow fetches the reads overlapping one window and reduces them to
// the window's haplotype tally.  The shard's padding pulls in reads that
// start up to MaxReadSpan before the first site; reads spanning more than
// that are missed, the same sizing assumption the rest of this codebase
// makes.
func processWindow(provider bamprovider.Provider, ref *sam.Reference, sites []Site, w Window, opts *Opts) (map[string]int, error) {
	shard := gbam.Shard{
		StartRef: ref,
		EndRef:   ref,
		Start:    sites[w.Start].Pos,
		End:      sites[w.End-1].Pos + 1,
		Padding:  opts.MaxReadSpan,
	}
	iter := provider.NewIterator(shard)
	asm := newAssembler(sites[w.Start:w.End], byte(opts.MinBaseQual))
	for iter.Scan() {
		samr := iter.Record()
		if (opts.FlagExclude&int(samr.Flags) != 0) ||
			(samr.Flags&sam.Unmapped != 0) ||
			(int(samr.MapQ) < opts.Mapq) ||
			(len(samr.Cigar) == 0) {
			sam.PutInFreePool(samr)
			continue
		}
		asm.add(samr)
		sam.PutInFreePool(samr)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return asm.tally(), nil
}

// processChrom runs every window of one chromosome, in position order, and
// returns the per-window diversities.  A nil ref means the chromosome is
// absent from the BAM header; its windows see zero reads and the chromosome
// falls back to the monoclonal default downstream.
func processChrom(ctx context.Context, provider bamprovider.Provider, ref *sam.Reference, sites []Site, opts *Opts) ([]windowDiversity, error) {
	ws := windows(sites, opts.MaxDist, opts.MaxWindowSNPs)
	divs := make([]windowDiversity, 0, len(ws))
	for _, w := range ws {
		// Abort cleanly at window granularity; a half-processed window is
		// discarded, never merged.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tally := map[string]int{}
		if ref != nil {
			var err error
			if tally, err = processWindow(provider, ref, sites, w, opts); err != nil {
				return nil, err
			}
		}
		divs = append(divs, windowDiversity{window: w, diversity: diversity(tally, opts.MinCount)})
	}
	return divs, nil
}

// EstimateFromProvider runs the estimator against an already-open provider
// and site table.  Estimate is the usual entry point; this one exists so
// tests and embedders can supply their own provider.
func EstimateFromProvider(ctx context.Context, provider bamprovider.Provider, table *SiteTable, rawOpts *Opts) (*Report, error) {
	opts := *rawOpts
	if err := opts.validate(); err != nil {
		return nil, err
	}
	header, err := provider.GetHeader()
	if err != nil {
		return nil, err
	}
	refByName := make(map[string]*sam.Reference, len(header.Refs()))
	for _, ref := range header.Refs() {
		refByName[ref.Name()] = ref
	}

	chroms := table.Chroms()
	chromDivs := make([][]windowDiversity, len(chroms))
	parallelism := minInt(opts.Parallelism, len(chroms))
	if parallelism > 0 {
		err = traverse.Each(parallelism, func(jobIdx int) error {
			startIdx := (jobIdx * len(chroms)) / parallelism
			endIdx := ((jobIdx + 1) * len(chroms)) / parallelism
			for i := startIdx; i < endIdx; i++ {
				chrom := chroms[i]
				ref := refByName[chrom]
				if ref == nil {
					log.Printf("moi: chromosome %s has SNP data but is absent from the BAM/PAM header", chrom)
				}
				divs, e := processChrom(ctx, provider, ref, table.Sites(chrom), &opts)
				if e != nil {
					return e
				}
				chromDivs[i] = divs
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	// Merge: per-chromosome max-reduction, then cross-chromosome.  Both are
	// order-independent folds, so the parallel schedule above cannot change
	// the outcome.
	histogram := make(map[int]int)
	results := make([]ChromResult, 0, len(chroms)+len(header.Refs()))
	for i, chrom := range chroms {
		for _, wd := range chromDivs[i] {
			if wd.diversity > 0 {
				histogram[wd.diversity]++
			}
		}
		cr := reduceChrom(chrom, table.Sites(chrom), chromDivs[i])
		if cr.WindowStart == 0 {
			log.Printf("moi: chromosome %s: no window passed filtering; reporting the monoclonal default (MOI=1)", chrom)
		}
		results = append(results, cr)
	}
	// Chromosomes in the header with no SNP data are explicitly
	// undetermined, not silently missing.
	for _, ref := range header.Refs() {
		if table.Sites(ref.Name()) == nil {
			log.Printf("moi: chromosome %s: %v; reporting undetermined", ref.Name(), ErrNoData)
			results = append(results, ChromResult{Chrom: ref.Name(), Undetermined: true})
		}
	}
	overall := reduceOverall(results)
	return newReport(results, overall, histogram), nil
}

// Estimate loads the VCF named by opts.VCFPath, opens the BAM/PAM at
// xampath, and runs the estimator.
func Estimate(ctx context.Context, xampath string, rawOpts *Opts) (report *Report, err error) {
	opts := *rawOpts
	if err = opts.validate(); err != nil {
		return nil, err
	}
	if opts.VCFPath == "" {
		return nil, errors.New("moi: a VCF path is required")
	}
	keep, err := siteFilter(&opts)
	if err != nil {
		return nil, err
	}
	recs, err := vcf.ReadPath(ctx, opts.VCFPath)
	if err != nil {
		return nil, errors.Wrapf(err, "moi: reading %s", opts.VCFPath)
	}
	table, err := NewSiteTable(recs, keep)
	if err != nil {
		return nil, err
	}
	log.Printf("moi: loaded %d biallelic SNP site(s) on %d chromosome(s)", table.NSites(), len(table.Chroms()))

	provider := bamprovider.NewProvider(xampath, bamprovider.ProviderOpts{Index: opts.BamIndexPath})
	defer func() {
		if e := provider.Close(); e != nil && err == nil {
			err = e
		}
	}()
	return EstimateFromProvider(ctx, provider, table, &opts)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
