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
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/pkg/errors"
)

// Software identifies this tool in reports.
const Software = "bio-moi"

// Version is reported alongside results so downstream consumers can tell
// which estimator produced them.
const Version = "0.1.0"

// ChromReport is the per-chromosome entry of the JSON report.  Window
// coordinates are 1-based and inclusive, and omitted when no window
// supported the estimate.
type ChromReport struct {
	MOI          int  `json:"moi"`
	WindowStart  int  `json:"window_start,omitempty"`
	WindowEnd    int  `json:"window_end,omitempty"`
	Undetermined bool `json:"undetermined,omitempty"`
}

// OverallReport is the cross-chromosome entry, recording which chromosome
// the winning window came from.
type OverallReport struct {
	ChromReport
	Chrom string `json:"chromosome,omitempty"`
}

// Report is the sole output artifact of an Estimate run.
type Report struct {
	Chroms  map[string]ChromReport `json:"chromosomes"`
	Overall OverallReport          `json:"overall"`
	// Histogram maps local haplotype diversity to the number of windows
	// that showed it, across all chromosomes.
	Histogram map[int]int `json:"haplotype_counts"`
	Software  string      `json:"software"`
	Version   string      `json:"version"`
}

func newReport(chroms []ChromResult, overall ChromResult, histogram map[int]int) *Report {
	r := &Report{
		Chroms:    make(map[string]ChromReport, len(chroms)),
		Histogram: histogram,
		Software:  Software,
		Version:   Version,
	}
	for _, cr := range chroms {
		r.Chroms[cr.Chrom] = ChromReport{
			MOI:          cr.MOI,
			WindowStart:  cr.WindowStart,
			WindowEnd:    cr.WindowEnd,
			Undetermined: cr.Undetermined,
		}
	}
	r.Overall = OverallReport{
		ChromReport: ChromReport{
			MOI:          overall.MOI,
			WindowStart:  overall.WindowStart,
			WindowEnd:    overall.WindowEnd,
			Undetermined: overall.Undetermined,
		},
		Chrom: overall.Chrom,
	}
	return r
}

// MOI returns the overall estimate; the second result is false when the run
// had no SNP data anywhere.
func (r *Report) MOI() (int, bool) {
	return r.Overall.MOI, !r.Overall.Undetermined
}

// HistogramTable renders the diversity histogram as a two-column text table
// for logging.
func (r *Report) HistogramTable() string {
	divs := make([]int, 0, len(r.Histogram))
	for d := range r.Histogram {
		divs = append(divs, d)
	}
	sort.Ints(divs)
	var b strings.Builder
	fmt.Fprintf(&b, "%16s  %8s\n", "Num haplotypes", "Windows")
	for _, d := range divs {
		fmt.Fprintf(&b, "%16d  %8d\n", d, r.Histogram[d])
	}
	return b.String()
}

// Write serializes the report as JSON to the given path.
func (r *Report) Write(ctx context.Context, path string) (err error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "moi: marshaling report")
	}
	var out file.File
	if out, err = file.Create(ctx, path); err != nil {
		return
	}
	defer func() {
		if e := out.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	_, err = out.Writer(ctx).Write(append(data, '\n'))
	return
}
