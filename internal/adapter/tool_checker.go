package adapter

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// ToolRequirement describes an external executable the run depends on.
type ToolRequirement struct {
	Name        string
	Description string
	// MinVersion is compared against the output of VersionArgs when set.
	MinVersion  string
	VersionArgs []string
	// VersionContains must appear (case-insensitively) in the version output when set.
	VersionContains string
}

// ToolChecker verifies that external tools are installed and recent enough.
type ToolChecker interface {
	CheckTools(ctx context.Context, tools []ToolRequirement) error
}

// LocalToolChecker looks tools up on PATH and queries their versions.
type LocalToolChecker struct {
	runner   CommandRunner
	lookPath func(string) (string, error)
}

// NewLocalToolChecker constructs a LocalToolChecker backed by runner.
func NewLocalToolChecker(runner CommandRunner) *LocalToolChecker {
	return &LocalToolChecker{runner: runner, lookPath: exec.LookPath}
}

// CheckTools fails on the first tool that is missing or too old.
func (c *LocalToolChecker) CheckTools(ctx context.Context, tools []ToolRequirement) error {
	for _, tool := range tools {
		if err := c.checkTool(ctx, tool); err != nil {
			return err
		}
	}

	return nil
}

func (c *LocalToolChecker) checkTool(ctx context.Context, tool ToolRequirement) error {
	path, err := c.lookPath(tool.Name)
	if err != nil {
		if tool.MinVersion != "" {
			return fmt.Errorf("%s %s or newer is not installed", tool.Description, tool.MinVersion)
		}

		return fmt.Errorf("can't find %s", tool.Description)
	}

	if len(tool.VersionArgs) == 0 {
		return nil
	}

	result, err := c.runner.Run(ctx, Command{Name: path, Args: tool.VersionArgs})
	if err != nil {
		return fmt.Errorf("query version of %s: %w", tool.Name, err)
	}

	output := strings.TrimSpace(result.Stdout)

	if tool.VersionContains != "" && !strings.Contains(strings.ToLower(output), strings.ToLower(tool.VersionContains)) {
		return fmt.Errorf("requires %s", tool.Description)
	}

	if tool.MinVersion == "" {
		return nil
	}

	ok, err := VersionAtLeast(firstLine(output), tool.MinVersion)
	if err != nil {
		return fmt.Errorf("parse version of %s: %w", tool.Name, err)
	}

	if !ok {
		return fmt.Errorf("the version of %s should be %s or newer", tool.Description, tool.MinVersion)
	}

	return nil
}

// VersionAtLeast reports whether have >= want.
func VersionAtLeast(have, want string) (bool, error) {
	haveVersion, err := goversion.NewVersion(strings.TrimSpace(have))
	if err != nil {
		return false, err
	}

	wantVersion, err := goversion.NewVersion(want)
	if err != nil {
		return false, err
	}

	return haveVersion.GreaterThanOrEqual(wantVersion), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}

	return s
}
