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
	"path/filepath"
	"testing"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
)

func TestSiteFilterRegion(t *testing.T) {
	opts := DefaultOpts
	opts.Region = "chr2:101-200"
	keep, err := siteFilter(&opts)
	assert.NoError(t, err)
	// 1-based inclusive region, 0-based site positions.
	assert.True(t, keep("chr2", 100))
	assert.True(t, keep("chr2", 199))
	assert.False(t, keep("chr2", 99))
	assert.False(t, keep("chr2", 200))
	assert.False(t, keep("chr1", 150))

	opts = DefaultOpts
	opts.Region = "chr2"
	keep, err = siteFilter(&opts)
	assert.NoError(t, err)
	assert.True(t, keep("chr2", 0))
	assert.False(t, keep("chr1", 0))
}

func TestSiteFilterBed(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()
	bedpath := filepath.Join(tmpdir, "tmp.bed")
	out, err := file.Create(ctx, bedpath)
	assert.NoError(t, err)
	_, err = out.Writer(ctx).Write([]byte("chr1\t100\t200\n"))
	assert.NoError(t, err)
	assert.NoError(t, out.Close(ctx))

	opts := DefaultOpts
	opts.BedPath = bedpath
	keep, err := siteFilter(&opts)
	assert.NoError(t, err)
	assert.True(t, keep("chr1", 100))
	assert.True(t, keep("chr1", 199))
	assert.False(t, keep("chr1", 200))
	assert.False(t, keep("chr2", 150))
}

func TestSiteFilterBedRegionExclusive(t *testing.T) {
	opts := DefaultOpts
	opts.BedPath = "sites.bed"
	opts.Region = "chr1"
	_, err := siteFilter(&opts)
	assert.True(t, err != nil)
	assert.HasSubstr(t, err.Error(), "mutually exclusive")
}

func TestSiteFilterUnrestricted(t *testing.T) {
	opts := DefaultOpts
	keep, err := siteFilter(&opts)
	assert.NoError(t, err)
	assert.True(t, keep == nil)
}
