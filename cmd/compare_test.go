package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkgabidiff.dev/pkg/pkgabidiff/internal/adapter"
	"pkgabidiff.dev/pkg/pkgabidiff/internal/domain"
	m "pkgabidiff.dev/pkg/pkgabidiff/internal/model"
)

func TestCompareCmd_Flags(t *testing.T) {
	cmd := newCompareCmd()

	for _, name := range []string{
		"old", "new", "bin", "src", "rebuild", "rebuild-dumps", "rebuild-report",
		"report-dir", dumpsDirFlagName, tmpDirFlagName, parallelFlagName, noHistoryFlagName, noTUIFlagName,
		"quiet", "use-tu-dump", "include-preamble", "include-paths", "ignore-tags",
		"keep-registers-and-offsets", "dumper-args",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}

	assert.Equal(t, "r", cmd.Flags().Lookup("rebuild").Shorthand)
	assert.Equal(t, "p", cmd.Flags().Lookup(parallelFlagName).Shorthand)
}

func TestCompareCmd_RequiresOldAndNew(t *testing.T) {
	cmd := newRootCmd()
	cmd.PersistentPreRun = nil
	cmd.AddCommand(newCompareCmd())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"compare", "--new", "b.rpm"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "old")
}

func executeCompare(t *testing.T, argv ...string) (*compareFlags, string, error) {
	t.Helper()

	flags := &compareFlags{}
	compare := newCompareCommand(flags)
	compare.RunE = func(*cobra.Command, []string) error { return nil }

	out := &bytes.Buffer{}

	cmd := newRootCmd()
	cmd.PersistentPreRun = nil
	cmd.AddCommand(compare)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append([]string{"compare"}, argv...))

	err := cmd.Execute()

	return flags, out.String(), err
}

func TestCompareCmd_PackageLists(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		wantOld []string
		wantNew []string
		wantBin bool
	}{
		{
			name: "values follow each option",
			argv: []string{
				"--old", "libfoo-1.0-1.x86_64.rpm", "libfoo-debuginfo-1.0-1.x86_64.rpm",
				"--new", "libfoo-1.1-1.x86_64.rpm", "libfoo-debuginfo-1.1-1.x86_64.rpm",
			},
			wantOld: []string{"libfoo-1.0-1.x86_64.rpm", "libfoo-debuginfo-1.0-1.x86_64.rpm"},
			wantNew: []string{"libfoo-1.1-1.x86_64.rpm", "libfoo-debuginfo-1.1-1.x86_64.rpm"},
		},
		{
			name:    "repeated options",
			argv:    []string{"--old", "a.rpm", "--new", "c.rpm", "--old", "b.rpm", "--new", "d.rpm"},
			wantOld: []string{"a.rpm", "b.rpm"},
			wantNew: []string{"c.rpm", "d.rpm"},
		},
		{
			name:    "commas and quotes stay in the path",
			argv:    []string{"--old", "dir,1/a.rpm", `it"s/b.rpm`, "--new", "c.rpm"},
			wantOld: []string{"dir,1/a.rpm", `it"s/b.rpm`},
			wantNew: []string{"c.rpm"},
		},
		{
			name:    "options after the lists",
			argv:    []string{"--bin", "--old", "a.rpm", "b.rpm", "--new", "c.rpm", "d.rpm", "e.rpm", "--rebuild"},
			wantOld: []string{"a.rpm", "b.rpm"},
			wantNew: []string{"c.rpm", "d.rpm", "e.rpm"},
			wantBin: true,
		},
		{
			name:    "options between the lists",
			argv:    []string{"--old", "a.rpm", "b.rpm", "--bin", "--new", "c.rpm", "d.rpm"},
			wantOld: []string{"a.rpm", "b.rpm"},
			wantNew: []string{"c.rpm", "d.rpm"},
			wantBin: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags, _, err := executeCompare(t, tt.argv...)
			require.NoError(t, err)

			assert.Equal(t, tt.wantOld, flags.old)
			assert.Equal(t, tt.wantNew, flags.new)
			assert.Equal(t, tt.wantBin, flags.binary)

			args, err := flags.compareArgs()
			require.NoError(t, err)
			assert.Len(t, args.Old, len(tt.wantOld))
			assert.Len(t, args.New, len(tt.wantNew))
		})
	}
}

func TestCompareCmd_PackageListErrors(t *testing.T) {
	_, _, err := executeCompare(t, "stray.rpm", "--old", "a.rpm", "--new", "b.rpm")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stray.rpm")

	_, _, err = executeCompare(t, "--old", "a.rpm", "b.rpm", "--no-such-flag")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-flag")

	_, _, err = executeCompare(t, "--old", "a.rpm", "b.rpm")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "new")
}

func TestCompareCmd_HelpAfterPackageList(t *testing.T) {
	_, out, err := executeCompare(t, "--old", "a.rpm", "b.rpm", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "--old paths")
}

func TestCompareFlags_CompareArgs(t *testing.T) {
	t.Cleanup(func() { viper.Set(dumperArgsKey, "") })

	tests := []struct {
		name    string
		flags   compareFlags
		extra   string
		want    func(t *testing.T, got domain.CompareArgs)
		wantErr bool
	}{
		{
			name:  "defaults compare both modes",
			flags: compareFlags{old: []string{"a.rpm", "a-debuginfo-1.rpm"}, new: []string{"b.rpm"}},
			want: func(t *testing.T, got domain.CompareArgs) {
				assert.Equal(t, m.CompareMode{Binary: true, Source: true}, got.Mode)
				assert.Equal(t, []m.Path{"a.rpm", "a-debuginfo-1.rpm"}, got.Old)
				assert.False(t, got.RebuildDumps)
				assert.False(t, got.RebuildReport)
				assert.Positive(t, got.Parallel)
			},
		},
		{
			name:  "binary only",
			flags: compareFlags{binary: true},
			want: func(t *testing.T, got domain.CompareArgs) {
				assert.Equal(t, m.CompareMode{Binary: true}, got.Mode)
			},
		},
		{
			name:  "source only",
			flags: compareFlags{source: true},
			want: func(t *testing.T, got domain.CompareArgs) {
				assert.Equal(t, m.CompareMode{Source: true}, got.Mode)
			},
		},
		{
			name:    "bin and src conflict",
			flags:   compareFlags{binary: true, source: true},
			wantErr: true,
		},
		{
			name:  "rebuild implies both rebuilds",
			flags: compareFlags{rebuild: true},
			want: func(t *testing.T, got domain.CompareArgs) {
				assert.True(t, got.RebuildDumps)
				assert.True(t, got.RebuildReport)
			},
		},
		{
			name:  "rebuild report only",
			flags: compareFlags{rebuildReport: true},
			want: func(t *testing.T, got domain.CompareArgs) {
				assert.False(t, got.RebuildDumps)
				assert.True(t, got.RebuildReport)
			},
		},
		{
			name:  "dumper options and quoted extra args",
			flags: compareFlags{quiet: true, useTUDump: true, includePaths: "/usr/include/foo"},
			extra: `-skip-cxx -vnum "1.0 beta"`,
			want: func(t *testing.T, got domain.CompareArgs) {
				assert.Equal(t, adapter.DumperOptions{
					Quiet:        true,
					UseTUDump:    true,
					IncludePaths: "/usr/include/foo",
					ExtraArgs:    []string{"-skip-cxx", "-vnum", "1.0 beta"},
				}, got.Dumper)
			},
		},
		{
			name:    "pipes in extra args",
			extra:   "-a | tee",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Set(dumperArgsKey, tt.extra)

			got, err := tt.flags.compareArgs()
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			tt.want(t, got)
		})
	}
}

func TestParseDumperArgs(t *testing.T) {
	args, err := parseDumperArgs("")
	require.NoError(t, err)
	assert.Nil(t, args)

	args, err = parseDumperArgs(`-lang C 'a b'`)
	require.NoError(t, err)
	assert.Equal(t, []string{"-lang", "C", "a b"}, args)

	_, err = parseDumperArgs("-x `id`")
	require.Error(t, err)
}

func TestOpenHistory_Disabled(t *testing.T) {
	assert.Nil(t, openHistory(true))
}
