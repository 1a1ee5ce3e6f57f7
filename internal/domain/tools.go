package domain

import (
	"pkgabidiff.dev/pkg/pkgabidiff/internal/adapter"
	m "pkgabidiff.dev/pkg/pkgabidiff/internal/model"
)

// Minimum versions of the analysis tools.
const (
	MinABIComplianceCheckerVersion = "1.99.25"
	MinABIDumperVersion            = "0.99.19"
)

// CtagsTool is used by abi-dumper to filter the public ABI.
const CtagsTool = "ctags"

// RequiredTools lists the executables a run needs for the given package
// formats. Universal Ctags is only needed when headers are available.
func RequiredTools(formats []m.PackageFormat, publicABI bool) []adapter.ToolRequirement {
	tools := []adapter.ToolRequirement{
		{
			Name:        adapter.ABIComplianceCheckerTool,
			Description: "ABI Compliance Checker",
			MinVersion:  MinABIComplianceCheckerVersion,
			VersionArgs: []string{"-dumpversion"},
		},
		{
			Name:        adapter.ABIDumperTool,
			Description: "ABI Dumper",
			MinVersion:  MinABIDumperVersion,
			VersionArgs: []string{"-dumpversion"},
		},
	}

	seen := map[m.PackageFormat]bool{}
	for _, format := range formats {
		seen[format] = true
	}

	if seen[m.FormatRPM] {
		tools = append(tools,
			adapter.ToolRequirement{Name: "rpm", Description: "RPM package manager"},
			adapter.ToolRequirement{Name: "rpm2cpio", Description: "rpm2cpio"},
			adapter.ToolRequirement{Name: "cpio", Description: "cpio"},
		)
	}

	if seen[m.FormatDEB] {
		tools = append(tools,
			adapter.ToolRequirement{Name: "dpkg", Description: "dpkg"},
			adapter.ToolRequirement{Name: "dpkg-deb", Description: "dpkg-deb"},
		)
	}

	if seen[m.FormatTBZ2] || seen[m.FormatXPAK] {
		tools = append(tools, adapter.ToolRequirement{Name: "tar", Description: "tar"})
	}

	if publicABI {
		tools = append(tools, adapter.ToolRequirement{
			Name:            CtagsTool,
			Description:     "Universal Ctags",
			VersionArgs:     []string{"--version"},
			VersionContains: "universal",
		})
	}

	return tools
}
