package config

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ParseSize parses a block-size literal as described in §6:
// an integer optionally followed by one of K, M, G, B (bytes).
// K/M/G are binary (1024-based), matching the partition's on-disk
// striping arithmetic; a bare "B" or no suffix means bytes.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty size")
	}
	mult := int64(1)
	suffix := s[len(s)-1]
	switch suffix {
	case 'K', 'k':
		mult = 1 << 10
		s = s[:len(s)-1]
	case 'M', 'm':
		mult = 1 << 20
		s = s[:len(s)-1]
	case 'G', 'g':
		mult = 1 << 30
		s = s[:len(s)-1]
	case 'B', 'b':
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid size %q", s)
	}
	return n * mult, nil
}
