package patternset

import (
	"testing"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/praetorian-inc/gosek/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_CountsDistinctNames(t *testing.T) {
	records := []types.Template{
		{Name: "AWS Key", Pattern: `AKIA[0-9A-Z]{16}`},
		{Name: "GitHub Token", Pattern: `ghp_[A-Za-z0-9]{36}`},
		{Name: "AWS Key", Pattern: `(AKIA|ASIA)[0-9A-Z]{16}`, Source: "user.yaml"},
	}

	set, err := Build(records, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []string{"AWS Key", "GitHub Token"}, set.Names())

	aws, ok := set.Get("AWS Key")
	require.True(t, ok)
	assert.Equal(t, `(AKIA|ASIA)[0-9A-Z]{16}`, aws.Source, "last occurrence should win")
	assert.Equal(t, "user.yaml", aws.Template.Source)
}

func TestBuild_InvalidRegexNamesTemplate(t *testing.T) {
	records := []types.Template{
		{Name: "Good", Pattern: `abc`},
		{Name: "Broken", Pattern: `(unclosed`, Source: "broken.json"},
	}

	set, err := Build(records, DefaultOptions())
	assert.Nil(t, set)

	var cfgErr *types.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "Broken", cfgErr.Template)
	assert.Equal(t, "broken.json", cfgErr.Source)
	assert.Equal(t, "pattern", cfgErr.Field)
	assert.Contains(t, err.Error(), `"Broken"`)
}

func TestBuild_UnknownFlag(t *testing.T) {
	_, err := Build([]types.Template{
		{Name: "Flagged", Pattern: `abc`, Flags: []string{"IGNORECASE", "UNICODE_PLEASE"}},
	}, DefaultOptions())

	var cfgErr *types.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "flags", cfgErr.Field)
	assert.Contains(t, err.Error(), "UNICODE_PLEASE")
}

func TestBuild_RequiresNameAndPattern(t *testing.T) {
	tests := []struct {
		name   string
		record types.Template
		field  string
	}{
		{"missing name", types.Template{Pattern: "abc"}, "name"},
		{"missing pattern", types.Template{Name: "Empty"}, "pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build([]types.Template{tt.record}, DefaultOptions())
			var cfgErr *types.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestBuild_NoRecords(t *testing.T) {
	_, err := Build(nil, DefaultOptions())
	var cfgErr *types.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestBuild_NamedGroupsAndPerlFallback(t *testing.T) {
	set, err := Build([]types.Template{
		{Name: "Named", Pattern: `token=(?P<value>[a-z]+)`},
		{Name: "Lookahead", Pattern: `secret(?=:)`},
	}, DefaultOptions())
	require.NoError(t, err)

	m, err := set.At(0).Regexp().FindStringMatch("token=abc")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "abc", m.GroupByName("value").String())

	m, err = set.At(1).Regexp().FindStringMatch("secret:1")
	require.NoError(t, err)
	require.NotNil(t, m)
}

func TestBuild_InstallsMatchTimeout(t *testing.T) {
	set, err := Build([]types.Template{{Name: "A", Pattern: "a"}}, Options{MatchTimeout: 250 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, set.At(0).Regexp().MatchTimeout)
}

func TestBuild_FlagsApplied(t *testing.T) {
	set, err := Build([]types.Template{
		{Name: "Insensitive", Pattern: `api_key`, Flags: []string{"ignorecase"}},
		{Name: "DotAll", Pattern: `BEGIN.+END`, Flags: []string{"DOTALL"}},
		{Name: "Anchored", Pattern: `^key$`},
	}, DefaultOptions())
	require.NoError(t, err)

	ok, err := set.At(0).Regexp().MatchString("API_KEY=1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = set.At(1).Regexp().MatchString("BEGIN\nbody\nEND")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = set.At(2).Regexp().MatchString("first\nkey\nlast")
	require.NoError(t, err)
	assert.True(t, ok, "multiline anchors are always on")
}

func TestBuild_Prefilter(t *testing.T) {
	set, err := Build([]types.Template{
		{Name: "AWS", Pattern: `AKIA[0-9A-Z]{16}`, Keywords: []string{"AKIA"}},
		{Name: "Any", Pattern: `password=\S+`},
	}, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []bool{false, true}, set.Candidates([]byte("password=hunter2")))

	plain := MustBuild([]types.Template{{Name: "Any", Pattern: "x"}}, DefaultOptions())
	assert.Nil(t, plain.Candidates([]byte("x")))
}

func TestParseFlags(t *testing.T) {
	f, err := ParseFlags([]string{"i", " dotall ", "VERBOSE", "MULTILINE"})
	require.NoError(t, err)
	assert.True(t, f.Has(FlagIgnoreCase|FlagDotAll|FlagVerbose|FlagMultiline))
	assert.Equal(t, "IGNORECASE|MULTILINE|DOTALL|VERBOSE", f.String())

	_, err = ParseFlags([]string{"ASCII"})
	assert.Error(t, err)
}

func TestFlagOptions(t *testing.T) {
	tests := []struct {
		flags    Flag
		expected regexp2.RegexOptions
	}{
		{0, regexp2.Multiline},
		{FlagMultiline, regexp2.Multiline},
		{FlagIgnoreCase, regexp2.Multiline | regexp2.IgnoreCase},
		{FlagDotAll, regexp2.Multiline | regexp2.Singleline},
		{FlagVerbose, regexp2.Multiline | regexp2.IgnorePatternWhitespace},
		{FlagIgnoreCase | FlagDotAll, regexp2.Multiline | regexp2.IgnoreCase | regexp2.Singleline},
		{
			FlagIgnoreCase | FlagMultiline | FlagDotAll | FlagVerbose,
			regexp2.Multiline | regexp2.IgnoreCase | regexp2.Singleline | regexp2.IgnorePatternWhitespace,
		},
	}

	for _, tt := range tests {
		t.Run(tt.flags.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.flags.options())
		})
	}
}
