package partlist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	in := "Part,Color,Quantity\n" +
		"3001,4,2\n" +
		"3003pr0001,1,1\n" +
		"3001,15,6\n" +
		"3003,0,1\n" +
		"\n" +
		" 3622 ,4,1\n"

	parts, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"3001", "3003", "3622"}, parts)
}

func TestParseHeaderOnly(t *testing.T) {
	parts, err := Parse(strings.NewReader("Part,Color\n"))
	require.NoError(t, err)
	assert.Empty(t, parts)

	parts, err = Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse(strings.NewReader("Part\n\"3001\n"))
	assert.Error(t, err)
}

func TestBasePart(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"3001", "3001"},
		{"3001pr0001", "3001"},
		{"973pr1234c01", "973"},
		{" 3068b ", "3068b"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, BasePart(tt.in))
		})
	}
}

func TestRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "set.csv")
	require.NoError(t, os.WriteFile(path, []byte("Part\n3001\n3002\n"), 0644))

	parts, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"3001", "3002"}, parts)
	assert.Equal(t, "3001.dat", FileName(parts[0]))

	_, err = Read(filepath.Join(t.TempDir(), "none.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
