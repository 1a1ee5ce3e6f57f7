package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pkgabidiff.dev/pkg/pkgabidiff/internal/adapter"
	m "pkgabidiff.dev/pkg/pkgabidiff/internal/model"
)

func toolNames(tools []adapter.ToolRequirement) []string {
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}

	return names
}

func TestRequiredTools(t *testing.T) {
	tests := []struct {
		name      string
		formats   []m.PackageFormat
		publicABI bool
		want      []string
	}{
		{"rpm", []m.PackageFormat{m.FormatRPM, m.FormatRPM}, false, []string{"abi-compliance-checker", "abi-dumper", "rpm", "rpm2cpio", "cpio"}},
		{"deb with headers", []m.PackageFormat{m.FormatDEB}, true, []string{"abi-compliance-checker", "abi-dumper", "dpkg", "dpkg-deb", "ctags"}},
		{"apk is native", []m.PackageFormat{m.FormatAPK}, false, []string{"abi-compliance-checker", "abi-dumper"}},
		{"binpkg", []m.PackageFormat{m.FormatTBZ2, m.FormatXPAK}, false, []string{"abi-compliance-checker", "abi-dumper", "tar"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toolNames(RequiredTools(tt.formats, tt.publicABI)))
		})
	}
}

func TestRequiredTools_Versions(t *testing.T) {
	tools := RequiredTools(nil, true)

	assert.Equal(t, MinABIComplianceCheckerVersion, tools[0].MinVersion)
	assert.Equal(t, MinABIDumperVersion, tools[1].MinVersion)
	assert.Equal(t, []string{"-dumpversion"}, tools[1].VersionArgs)
	assert.Equal(t, "universal", tools[2].VersionContains)
}
