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

/*
Given a BAM or PAM, and a VCF providing biallelic SNP sites, bio-moi estimates
the sample's multiplicity of infection: the number of genetically distinct
clones present.  Nearby SNPs are grouped into windows, each read(-pair)'s
allele combination across a window is treated as one haplotype observation,
and the number of well-supported distinct haplotypes in the most diverse
window is the estimate.

The JSON report contains per-chromosome and overall MOI values, each with the
coordinates of the window that produced it, plus a histogram of per-window
haplotype diversities.

Sample usage:
bio-moi \
    --vcf sites.vcf.gz \
    --out report.json \
    my.bam
*/
package main
