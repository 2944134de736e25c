package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archsmith/internal/version"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in    string
		major uint64
	}{
		{"11", 11},
		{"11.1.072", 11},
		{"2011.8", 2011},
		{"2011.10.319", 2011},
		{"2013.5.192.1", 2013},
		{" 2.2 ", 2},
		{"2013_sp1.1.106", 2013},
		{"2.2.0-rc1", 2},
		{"v4.9", 4},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			v, err := version.Parse(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.major, v.Major())
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "  ", "abc", "unknown", "99999999999999999999"} {
		t.Run(in, func(t *testing.T) {
			_, err := version.Parse(in)
			assert.Error(t, err)
		})
	}
}

func TestCompareIsNumeric(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"9", "11", -1},
		{"11.1.072", "11.1.72", 0},
		{"11.1.069", "11.1.072", -1},
		{"2011.10", "2011.8", 1},
		{"2.0.1", "2.0", 1},
		{"2.2", "2.2.0", 0},
		{"2013_sp1.1.106", "2013.1.1", 0},
		{"2013_sp1.1.106", "11", 1},
		{"2.2.0-rc1", "2.2", 0},
		{"1.x", "1", 0},
	}
	for _, tc := range tests {
		t.Run(tc.a+"_"+tc.b, func(t *testing.T) {
			got := version.MustParse(tc.a).Compare(version.MustParse(tc.b))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRangeContains(t *testing.T) {
	r := version.Range{Min: version.MustParse("2011"), Below: version.MustParse("2012")}
	assert.True(t, r.Contains(version.MustParse("2011.8")))
	assert.True(t, r.Contains(version.MustParse("2011")))
	assert.False(t, r.Contains(version.MustParse("2012")))
	assert.False(t, r.Contains(version.MustParse("12.1")))

	open := version.Range{Min: version.MustParse("11")}
	assert.True(t, open.Contains(version.MustParse("2013.1")))
	assert.False(t, open.Contains(version.MustParse("10.1")))
	assert.Equal(t, ">= 11", open.String())
}

func TestStringKeepsOriginalSpelling(t *testing.T) {
	assert.Equal(t, "11.1.072", version.MustParse("11.1.072").String())
}
