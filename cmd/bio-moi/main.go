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
package main

/*
bio-moi estimates the multiplicity of infection of a sample: the number of
genetically distinct clones present, inferred from the number of distinct
haplotypes that reads support across windows of nearby biallelic SNPs.
*/

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/pathogenomics/moi/moi"
)

var (
	vcfPath       = flag.String("vcf", moi.DefaultOpts.VCFPath, "Input VCF path; required. Only biallelic SNPs are used")
	outPath       = flag.String("out", "", "Output JSON report path; required")
	bedPath       = flag.String("bed", moi.DefaultOpts.BedPath, "Optional BED path restricting which SNPs are considered")
	region        = flag.String("region", moi.DefaultOpts.Region, "Restrict the estimate to the specified region. Format as <contig ID>:<1-based first pos>-<last pos>, <contig ID>:<1-based pos>, or just <contig ID>")
	bamIndexPath  = flag.String("index", moi.DefaultOpts.BamIndexPath, "Input BAM index path. Defaults to bampath + .bai")
	maxDist       = flag.Int("maxdist", moi.DefaultOpts.MaxDist, "Maximum genomic distance between the first and last SNP of a window")
	minCount      = flag.Float64("min-count", moi.DefaultOpts.MinCount, "Minimum read support per haplotype. Values below 1 are interpreted as a fraction of the reads at the window")
	maxWindowSNPs = flag.Int("max-window-snps", moi.DefaultOpts.MaxWindowSNPs, "Upper bound on SNPs per window; 0 = unlimited")
	mapq          = flag.Int("mapq", moi.DefaultOpts.Mapq, "Reads with MAPQ below this level are skipped")
	minBaseQual   = flag.Int("min-base-qual", moi.DefaultOpts.MinBaseQual, "Bases below this quality are treated as no-calls")
	flagExclude   = flag.Int("flag-exclude", moi.DefaultOpts.FlagExclude, "Reads with a FLAG bit intersecting this value are skipped")
	maxReadSpan   = flag.Int("max-read-span", moi.DefaultOpts.MaxReadSpan, "Upper bound on size of reference-genome region a read maps to")
	parallelism   = flag.Int("parallelism", moi.DefaultOpts.Parallelism, "Maximum number of chromosomes processed simultaneously; 0 = runtime.NumCPU()")
)

func bioMoiUsage() {
	fmt.Printf("Usage: %s [OPTIONS] {b,p}ampath\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = bioMoiUsage
	shutdown := grail.Init()
	defer shutdown()

	allArgs := flag.Args()
	nPositionalArgs := flag.NArg()
	positionalArgs := allArgs[len(allArgs)-nPositionalArgs:]
	if nPositionalArgs != 1 {
		if nPositionalArgs < 1 {
			log.Fatalf("Missing positional argument ({b,p}ampath required); please check flag syntax")
		} else {
			log.Fatalf("Too many positional arguments (only {b,p}ampath expected); please check flag syntax: '%s'", strings.Join(positionalArgs, " "))
		}
	}
	if *vcfPath == "" {
		log.Fatalf("-vcf is required")
	}
	if *outPath == "" {
		log.Fatalf("-out is required")
	}
	ctx := vcontext.Background()
	opts := moi.Opts{
		VCFPath:       *vcfPath,
		BedPath:       *bedPath,
		Region:        *region,
		BamIndexPath:  *bamIndexPath,
		MaxDist:       *maxDist,
		MinCount:      *minCount,
		MaxWindowSNPs: *maxWindowSNPs,
		Mapq:          *mapq,
		MinBaseQual:   *minBaseQual,
		FlagExclude:   *flagExclude,
		MaxReadSpan:   *maxReadSpan,
		Parallelism:   *parallelism,
	}
	report, err := moi.Estimate(ctx, positionalArgs[0], &opts)
	if err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("per-window haplotype diversity:\n%s", report.HistogramTable())
	if estimate, ok := report.MOI(); ok {
		if report.Overall.WindowStart > 0 {
			log.Printf("estimated MOI: %d (from %s:%d-%d)", estimate, report.Overall.Chrom, report.Overall.WindowStart, report.Overall.WindowEnd)
		} else {
			log.Printf("estimated MOI: %d", estimate)
		}
	} else {
		log.Printf("estimated MOI: undetermined (no SNP data)")
	}
	if err := report.Write(ctx, *outPath); err != nil {
		log.Fatalf("%v", err)
	}
	log.Debug.Printf("exiting")
}
