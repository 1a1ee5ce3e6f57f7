package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockCommandRunner is a testify mock of CommandRunner.
type mockCommandRunner struct {
	mock.Mock
}

func (r *mockCommandRunner) Run(ctx context.Context, cmd Command) (CommandResult, error) {
	args := r.Called(ctx, cmd)
	return args.Get(0).(CommandResult), args.Error(1)
}

// commandNamed matches a command by executable name.
func commandNamed(name string) interface{} {
	return mock.MatchedBy(func(cmd Command) bool { return cmd.Name == name })
}

func TestCommand_String(t *testing.T) {
	cmd := Command{Name: "abi-dumper", Args: []string{"-o", "ABI.dump", "libfoo.so"}}
	assert.Equal(t, "abi-dumper -o ABI.dump libfoo.so", cmd.String())
}

func TestLocalCommandRunner_Run(t *testing.T) {
	runner := NewLocalCommandRunner()

	t.Run("captures output", func(t *testing.T) {
		result, err := runner.Run(t.Context(), Command{Name: "sh", Args: []string{"-c", "echo out; echo err >&2"}})
		require.NoError(t, err)
		assert.Equal(t, "out\n", result.Stdout)
		assert.Equal(t, "err\n", result.Stderr)
		assert.Equal(t, 0, result.ExitCode)
	})

	t.Run("reports exit code", func(t *testing.T) {
		result, err := runner.Run(t.Context(), Command{Name: "sh", Args: []string{"-c", "echo broken >&2; exit 12"}})
		require.Error(t, err)
		assert.Equal(t, 12, result.ExitCode)
		assert.Contains(t, err.Error(), "broken")
	})

	t.Run("runs in directory", func(t *testing.T) {
		dir := t.TempDir()

		result, err := runner.Run(t.Context(), Command{Name: "pwd", Dir: dir})
		require.NoError(t, err)
		assert.Contains(t, result.Stdout, dir)
	})

	t.Run("missing executable", func(t *testing.T) {
		result, err := runner.Run(t.Context(), Command{Name: "pkgabidiff-no-such-tool"})
		require.Error(t, err)
		assert.Equal(t, -1, result.ExitCode)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		_, err := runner.Run(ctx, Command{Name: "sleep", Args: []string{"5"}})
		require.ErrorIs(t, err, context.Canceled)
	})
}
