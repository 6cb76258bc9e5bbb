package vcf_test

import (
	"strings"
	"testing"

	"github.com/pathogenomics/moi/encoding/vcf"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "##fileformat=VCFv4.2\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n"

func TestRead(t *testing.T) {
	in := header +
		"Pf3D7_01\t120\t.\tA\tG\t30\tPASS\t.\n" +
		"Pf3D7_01\t185\trs1\tC\tT,G\t30\tPASS\tDP=55\n" +
		"Pf3D7_02\t40\t.\tAT\tA\t30\tPASS\t.\n"
	recs, err := vcf.Read(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, vcf.Record{Chrom: "Pf3D7_01", Pos: 120, Ref: "A", Alt: []string{"G"}}, recs[0])
	assert.Equal(t, []string{"T", "G"}, recs[1].Alt)
	assert.Equal(t, "AT", recs[2].Ref)
}

func TestReadBlankAndCRLFTolerance(t *testing.T) {
	in := header + "\nchr1\t7\t.\tG\tC\t.\t.\t.\r\n"
	recs, err := vcf.Read(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 7, recs[0].Pos)
}

func TestReadMalformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"too_few_fields", "chr1\t100\t.\tA\n"},
		{"bad_pos", "chr1\tx100\t.\tA\tG\t.\t.\t.\n"},
		{"zero_pos", "chr1\t0\t.\tA\tG\t.\t.\t.\n"},
		{"empty_ref", "chr1\t100\t.\t\tG\t.\t.\t.\n"},
		{"empty_alt", "chr1\t100\t.\tA\t\t.\t.\t.\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := vcf.Read(strings.NewReader(header + test.line))
			require.Error(t, err)
			assert.Equal(t, vcf.ErrMalformed, errors.Cause(err))
		})
	}
}

func TestIsBiallelicSNP(t *testing.T) {
	tests := []struct {
		ref  string
		alt  []string
		want bool
	}{
		{"A", []string{"G"}, true},
		{"C", []string{"T"}, true},
		{"A", []string{"T", "G"}, false}, // multiallelic
		{"AT", []string{"A"}, false},     // deletion
		{"A", []string{"AG"}, false},     // insertion
		{"A", []string{"."}, false},      // placeholder
		{"A", []string{"*"}, false},      // spanning deletion
	}
	for _, test := range tests {
		rec := vcf.Record{Chrom: "chr1", Pos: 1, Ref: test.ref, Alt: test.alt}
		assert.Equal(t, test.want, rec.IsBiallelicSNP(), "REF=%s ALT=%v", test.ref, test.alt)
	}
}
