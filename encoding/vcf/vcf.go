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

// Package vcf contains a minimal reader for VCF variant records.  It keeps
// just the fields needed for site-based analyses (CHROM/POS/REF/ALT) and
// classifies records as biallelic SNPs; it does not interpret INFO, FORMAT,
// or per-sample columns.
package vcf

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/pkg/errors"
)

// ErrMalformed is the cause of every record-format error returned by this
// package.  Use errors.Cause to test for it.
var ErrMalformed = errors.New("malformed VCF record")

// A VCF data line has at least CHROM, POS, ID, REF, ALT, QUAL, FILTER, INFO.
const minFields = 8

// Record holds one VCF data line, reduced to the fields consumed by
// site-based callers.  Pos is the 1-based position from the file.
type Record struct {
	Chrom string
	Pos   int
	Ref   string
	Alt   []string
}

// IsBiallelicSNP reports whether the record describes a single-nucleotide
// variant with exactly two alleles: a one-base REF and a single one-base,
// non-symbolic ALT.
func (r *Record) IsBiallelicSNP() bool {
	if len(r.Ref) != 1 || len(r.Alt) != 1 {
		return false
	}
	alt := r.Alt[0]
	if len(alt) != 1 {
		return false
	}
	// "." and "*" are placeholders, not alleles.
	return alt != "." && alt != "*"
}

// Read parses VCF text, returning data-line records in file order.  Header
// lines (leading '#') are skipped.  Structural problems in a data line cause
// an error wrapping ErrMalformed; the caller is expected to treat that as
// fatal rather than resume mid-file.
func Read(r io.Reader) ([]Record, error) {
	var recs []Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, 16*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < minFields {
			return nil, errors.Wrapf(ErrMalformed, "line %d: %d fields, expected at least %d", lineNum, len(fields), minFields)
		}
		chrom := fields[0]
		if chrom == "" {
			return nil, errors.Wrapf(ErrMalformed, "line %d: empty CHROM", lineNum)
		}
		pos, err := strconv.Atoi(fields[1])
		if err != nil || pos < 1 {
			return nil, errors.Wrapf(ErrMalformed, "line %d: bad POS %q", lineNum, fields[1])
		}
		ref := fields[3]
		if ref == "" {
			return nil, errors.Wrapf(ErrMalformed, "line %d: empty REF", lineNum)
		}
		altField := fields[4]
		if altField == "" {
			return nil, errors.Wrapf(ErrMalformed, "line %d: empty ALT", lineNum)
		}
		recs = append(recs, Record{
			Chrom: chrom,
			Pos:   pos,
			Ref:   ref,
			Alt:   strings.Split(altField, ","),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "couldn't read VCF data")
	}
	return recs, nil
}

// ReadPath reads the VCF at the given path, transparently decompressing
// .gz/.bz2/.zst inputs.
func ReadPath(ctx context.Context, path string) (recs []Record, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	reader, _ := compress.NewReader(in.Reader(ctx))
	defer func() {
		if e := reader.Close(); e != nil && err == nil {
			err = e
		}
	}()
	return Read(reader)
}
