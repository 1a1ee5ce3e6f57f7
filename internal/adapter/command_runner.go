package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Command describes one external process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// CommandResult is the captured outcome of a Command.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandRunner abstracts process execution so adapters can be tested
// without the external tools installed.
type CommandRunner interface {
	// Run executes cmd and waits for it. A non-zero exit status is returned as
	// an error together with the populated result.
	Run(ctx context.Context, cmd Command) (CommandResult, error)
}

// LocalCommandRunner runs commands with os/exec.
type LocalCommandRunner struct{}

// NewLocalCommandRunner constructs a LocalCommandRunner.
func NewLocalCommandRunner() *LocalCommandRunner {
	return &LocalCommandRunner{}
}

// Run executes cmd, capturing stdout and stderr separately.
func (r *LocalCommandRunner) Run(ctx context.Context, cmd Command) (CommandResult, error) {
	//nolint:gosec // G204: the command line is assembled from known tool names.
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir

	var stdout, stderr bytes.Buffer

	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()

	result := CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
	} else {
		result.ExitCode = -1
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, ctxErr
	}

	return result, fmt.Errorf("%s: %w: %s", cmd.Name, err, strings.TrimSpace(result.Stderr))
}
