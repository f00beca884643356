package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"1024", 1024},
		{"4K", 4 << 10},
		{"4k", 4 << 10},
		{"2M", 2 << 20},
		{"1G", 1 << 30},
		{"512B", 512},
		{" 8M ", 8 << 20},
	}
	for _, c := range cases {
		got, err := ParseSize(c.in)
		require.NoError(t, err, c.in)
		require.Equal(t, c.want, got, c.in)
	}
}

func TestParseSizeErrors(t *testing.T) {
	for _, in := range []string{"", "abc", "4X", "--1"} {
		_, err := ParseSize(in)
		require.Error(t, err, in)
	}
}
