package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"libfoo.so.1.2", "libfoo.so"},
		{"libfoo.so", "libfoo.so"},
		{"libfoo-2.0.so.0", "libfoo-2.0.so"},
		{"libfoo.sox", ""},
		{"libfoo.a", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShortName(tt.name))
		})
	}
}

func TestShortestName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"libfoo.so.1", "libfoo"},
		{"libfoo2.so", "libfoo"},
		{"libfoo-2.so.1", "libfoo-"},
		{"1libfoo.so", ""},
		{".hidden.so", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShortestName(tt.name))
		})
	}
}

func TestNewSharedObject(t *testing.T) {
	obj := NewSharedObject("libfoo.so.1.2", "/tmp/x/usr/lib64/libfoo.so.1.2", "libfoo.so.1")

	assert.Equal(t, "libfoo.so.1.2", obj.Name)
	assert.Equal(t, "libfoo.so.1", obj.SONAME)
	assert.Equal(t, "libfoo.so", obj.ShortName)
	assert.Equal(t, "libfoo", obj.ShortestName)
}
