package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"report exists", ErrReportExists, ExitOK},
		{"wrapped report exists", fmt.Errorf("%w: dir", ErrReportExists), ExitOK},
		{"empty dumps", fmt.Errorf("%w (old)", ErrEmptyDumps), ExitEmpty},
		{"no debug info", fmt.Errorf("%w in new debuginfo package", ErrNoDebugInfo), ExitNoDebug},
		{"no objects", ErrNoObjects, ExitNoABI},
		{"no reports", ErrNoReports, ExitError},
		{"invalid input", ErrInvalidInput, ExitError},
		{"other", errors.New("boom"), ExitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestIsReportExists(t *testing.T) {
	assert.True(t, IsReportExists(fmt.Errorf("%w: x", ErrReportExists)))
	assert.False(t, IsReportExists(ErrEmptyDumps))
}
