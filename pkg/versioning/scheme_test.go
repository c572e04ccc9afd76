package versioning

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambabib/depdoctor/pkg/model"
)

func TestSemverFloor(t *testing.T) {
	s := For(model.Node)
	tests := []struct {
		constraint string
		floor      string // "" means unbounded
	}{
		{"^17.0.0", "17.0.0"},
		{"~1.2.3", "1.2.3"},
		{"4.17.20", "4.17.20"},
		{"=4.17.20", "4.17.20"},
		{">=1.0.0 <2.0.0", "1.0.0"},
		{">= 1.2, < 2", "1.2.0"},
		{"1.2.x", "1.2.0"},
		{"1.x", "1.0.0"},
		{"1.0.0 - 2.0.0", "1.0.0"},
		{"^1.0.0 || ^2.0.0", "1.0.0"},
		{"v1.9.1", "1.9.1"},
		{"*", ""},
		{"", ""},
		{"latest", ""},
		{"<2.0.0", ""},
		{"^1.0.0 || *", ""},
	}

	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			floor, bounded, err := s.Floor(tt.constraint)
			require.NoError(t, err)
			if tt.floor == "" {
				assert.False(t, bounded)
				assert.Nil(t, floor)
				return
			}
			require.True(t, bounded)
			assert.Equal(t, tt.floor, floor.String())
		})
	}
}

func TestSemverFloor_NotComparable(t *testing.T) {
	s := For(model.Node)
	for _, c := range []string{
		"git+https://github.com/user/repo.git#commit-ish",
		"file:../local",
		"workspace:*",
		"user/repo",
	} {
		_, _, err := s.Floor(c)
		assert.ErrorIs(t, err, ErrNotComparable, c)
	}

	_, _, err := For(model.Java).Floor("${spring.version}")
	assert.ErrorIs(t, err, ErrNotComparable)
}

func TestIntervalNotation(t *testing.T) {
	s := For(model.DotNet)

	floor, bounded, err := s.Floor("[1.0,2.0)")
	require.NoError(t, err)
	require.True(t, bounded)
	assert.Equal(t, "1.0.0", floor.String())

	_, bounded, err = s.Floor("(,3.0]")
	require.NoError(t, err)
	assert.False(t, bounded)

	ok, err := s.Allows("[1.0,2.0)", semver.MustParse("1.5.0"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Allows("[1.0,2.0)", semver.MustParse("2.0.0"))
	require.NoError(t, err)
	assert.False(t, ok)

	// NuGet reads a bare version as a minimum
	ok, err = s.Allows("12.0.1", semver.MustParse("13.0.3"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSemverParse_Lenient(t *testing.T) {
	s := For(model.Java)
	v, err := s.Parse("4.3.2.RELEASE")
	require.NoError(t, err)
	assert.Equal(t, "4.3.2", v.String())

	v, err = s.Parse("31.1-jre")
	require.NoError(t, err)
	assert.Equal(t, uint64(31), v.Major())

	_, err = s.Parse("not-a-version")
	assert.Error(t, err)
}

func TestPEP440Parse(t *testing.T) {
	p := For(model.Python)
	tests := []struct {
		in       string
		expected string
	}{
		{"2.0", "2.0.0"},
		{"2.31.0", "2.31.0"},
		{"1.0a1", "1.0.0-alpha.1"},
		{"1.0b2", "1.0.0-beta.2"},
		{"2.0rc1", "2.0.0-rc.1"},
		{"1.0.dev3", "1.0.0-0.dev.3"},
		{"1.0.post2", "1.0.0+post2"},
		{"1!2.0", "2.0.0"},
		{"1.2.3.4", "1.2.3+seg-4"},
		{"1.2.3.0", "1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := p.Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v.String())
		})
	}
}

func TestPEP440Ordering(t *testing.T) {
	p := For(model.Python)
	ordered := []string{"1.0.dev1", "1.0a1", "1.0b1", "1.0rc1", "1.0", "1.1", "2.0"}
	for i := 1; i < len(ordered); i++ {
		lo, err := p.Parse(ordered[i-1])
		require.NoError(t, err)
		hi, err := p.Parse(ordered[i])
		require.NoError(t, err)
		assert.True(t, lo.LessThan(hi), "%s < %s", ordered[i-1], ordered[i])
	}
}

func TestPEP440Floor(t *testing.T) {
	p := For(model.Python)
	tests := []struct {
		constraint string
		floor      string
	}{
		{"==1.0.0", "1.0.0"},
		{">=2.0", "2.0.0"},
		{"~=1.4.2", "1.4.2"},
		{">=1.0,<2.0", "1.0.0"},
		{"==1.*", "1.0.0"},
		{"^1.2", "1.2.0"},
		{"!=1.5", ""},
		{"<3", ""},
		{"*", ""},
	}
	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			floor, bounded, err := p.Floor(tt.constraint)
			require.NoError(t, err)
			if tt.floor == "" {
				assert.False(t, bounded)
				return
			}
			require.True(t, bounded)
			assert.Equal(t, tt.floor, floor.String())
		})
	}
}

func TestPEP440Allows(t *testing.T) {
	p := For(model.Python)
	tests := []struct {
		constraint string
		version    string
		allowed    bool
	}{
		{">=2.0", "2.31.0", true},
		{"==1.0.0", "3.0.0", false},
		{"~=1.4.2", "1.4.9", true},
		{"~=1.4.2", "1.5.0", false},
		{"~=1.4", "1.9.0", true},
		{">=1.0,<2.0", "2.0.0", false},
		{"==1.*", "1.7.0", true},
		{"", "9.9.9", true},
		{"==1.2.3.4", "1.2.3.5", false},
		{"==1.2.3.4", "1.2.3.4", true},
		{">=1.2.3.4", "1.2.3.1", false},
		{"<1.2.3.4", "1.2.3.1", true},
		{"!=1.0.post1", "1.0.post1", false},
		{">=2.0", "3.0rc1", false},
	}
	for _, tt := range tests {
		t.Run(tt.constraint+"/"+tt.version, func(t *testing.T) {
			v, err := p.Parse(tt.version)
			require.NoError(t, err)
			ok, err := p.Allows(tt.constraint, v)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, ok)
		})
	}
}

func TestUpdateType(t *testing.T) {
	v := semver.MustParse
	assert.Equal(t, "major", UpdateType(v("1.0.0"), v("3.0.0")))
	assert.Equal(t, "minor", UpdateType(v("2.0.0"), v("2.31.0")))
	assert.Equal(t, "patch", UpdateType(v("4.17.20"), v("4.17.21")))
	assert.Equal(t, "", UpdateType(v("2.0.0"), v("2.0.0")))
	assert.Equal(t, "", UpdateType(v("2.1.0"), v("2.0.0")))
	assert.Equal(t, "", UpdateType(nil, v("2.0.0")))
	assert.Equal(t, "patch", UpdateType(v("4.0.0+seg-1"), v("4.0.0+seg-9")))
}

func TestCompare_ReleaseSegmentsPastThird(t *testing.T) {
	tests := []struct {
		eco    model.Ecosystem
		lo, hi string
	}{
		{model.Python, "1.2.3.4", "1.2.3.5"},
		{model.Python, "1.2.3", "1.2.3.1"},
		{model.Python, "1.2.3.9", "1.2.4"},
		{model.Python, "1.0", "1.0.post1"},
		{model.Python, "1.0.post1", "1.0.0.1"},
		{model.DotNet, "4.0.0.1", "4.0.0.9"},
		{model.DotNet, "4.0.0.9", "4.0.0.10"},
		{model.DotNet, "4.0.0", "4.0.0.1"},
		{model.Java, "1.2.3.4", "1.2.3.4.1"},
	}
	for _, tt := range tests {
		t.Run(string(tt.eco)+"/"+tt.lo+"<"+tt.hi, func(t *testing.T) {
			s := For(tt.eco)
			lo, err := s.Parse(tt.lo)
			require.NoError(t, err)
			hi, err := s.Parse(tt.hi)
			require.NoError(t, err)
			assert.Equal(t, -1, Compare(lo, hi))
			assert.Equal(t, 1, Compare(hi, lo))
		})
	}

	s := For(model.DotNet)
	a, err := s.Parse("4.0.0.0")
	require.NoError(t, err)
	b, err := s.Parse("4.0.0")
	require.NoError(t, err)
	assert.Equal(t, 0, Compare(a, b), "trailing zero segments are insignificant")
}

func TestDisplay(t *testing.T) {
	s := For(model.DotNet)
	v, err := s.Parse("4.0.0.12")
	require.NoError(t, err)
	assert.Equal(t, "4.0.0.12", Display(v))

	v, err = For(model.Python).Parse("2.0rc1")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0-rc.1", Display(v))
}
