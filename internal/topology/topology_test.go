package topology

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spin-mc/internal/neighbor"
)

func TestSquareHasFourDistinctSymmetricNeighbors(t *testing.T) {
	sites, p, err := Square(16, 16)
	require.NoError(t, err)
	require.Equal(t, 256, sites)

	lists, err := neighbor.Build(sites, p)
	require.NoError(t, err)
	for i := range lists {
		entries := lists[i].Entries()
		require.Len(t, entries, 4)
		seen := map[int]bool{}
		for _, e := range entries {
			assert.NotEqual(t, i, e.Site)
			assert.False(t, seen[e.Site], "site %d lists %d twice", i, e.Site)
			seen[e.Site] = true
			assert.True(t, lists[e.Site].Contains(i), "bond %d-%d not symmetric", i, e.Site)
			assert.Equal(t, 1.0, e.Strength)
		}
	}
}

func TestSquareWrapsAtEdges(t *testing.T) {
	_, p, err := Square(4, 3)
	require.NoError(t, err)
	got := p(0)
	assert.Equal(t, []neighbor.Entry{{Site: 3, Strength: 1}, {Site: 1, Strength: 1}, {Site: 8, Strength: 1}, {Site: 4, Strength: 1}}, got)
}

func TestSquareRejectsTinyGrids(t *testing.T) {
	_, _, err := Square(2, 8)
	assert.ErrorIs(t, err, ErrBadShape)
}

func TestRectAnisotropy(t *testing.T) {
	_, p, err := Rect(5, 5, 0.25)
	require.NoError(t, err)
	got := p(12)
	assert.Equal(t, 1.0, got[0].Strength)
	assert.Equal(t, 1.0, got[1].Strength)
	assert.Equal(t, 0.25, got[2].Strength)
	assert.Equal(t, 0.25, got[3].Strength)
	assert.Equal(t, 7, got[2].Site)
	assert.Equal(t, 17, got[3].Site)
}

func TestFromBonds(t *testing.T) {
	bonds := []Bond{{A: 0, B: 1}, {A: 1, B: 2, Class: 1}, {A: 2, B: 0}}
	sites, p, err := FromBonds(bonds, []float64{1, 0.5})
	require.NoError(t, err)
	assert.Equal(t, 3, sites)
	assert.Equal(t, []neighbor.Entry{{Site: 0, Strength: 1}, {Site: 2, Strength: 0.5}}, p(1))

	_, _, err = FromBonds(bonds, []float64{1})
	assert.ErrorIs(t, err, ErrUnknownBondClass)
	_, _, err = FromBonds(nil, nil)
	assert.ErrorIs(t, err, ErrBadShape)
}

func npyBytes(t *testing.T, descr string, fortran bool, rows, cols int, write func(*bytes.Buffer)) []byte {
	t.Helper()
	order := "False"
	if fortran {
		order = "True"
	}
	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': %s, 'shape': (%d, %d), }", descr, order, rows, cols)
	for (10+len(header)+1)%64 != 0 {
		header += " "
	}
	header += "\n"
	var buf bytes.Buffer
	buf.Write(npyMagic)
	buf.Write([]byte{1, 0})
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(len(header))))
	buf.WriteString(header)
	write(&buf)
	return buf.Bytes()
}

func TestReadNPYInt64(t *testing.T) {
	data := npyBytes(t, "<i8", false, 3, 2, func(b *bytes.Buffer) {
		for _, v := range []int64{0, 1, 1, 2, 2, 0} {
			require.NoError(t, binary.Write(b, binary.LittleEndian, v))
		}
	})
	bonds, err := ReadNPY(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []Bond{{A: 0, B: 1}, {A: 1, B: 2}, {A: 2, B: 0}}, bonds)
}

func TestReadNPYFortranOrderWithClasses(t *testing.T) {
	// Column-major storage of [[0,1,0],[1,2,1]].
	data := npyBytes(t, "<i4", true, 2, 3, func(b *bytes.Buffer) {
		for _, v := range []int32{0, 1, 1, 2, 0, 1} {
			require.NoError(t, binary.Write(b, binary.LittleEndian, v))
		}
	})
	bonds, err := ReadNPY(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []Bond{{A: 0, B: 1, Class: 0}, {A: 1, B: 2, Class: 1}}, bonds)
}

func TestReadNPYFloatIndices(t *testing.T) {
	data := npyBytes(t, "<f8", false, 1, 2, func(b *bytes.Buffer) {
		require.NoError(t, binary.Write(b, binary.LittleEndian, []float64{3, 4}))
	})
	bonds, err := ReadNPY(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []Bond{{A: 3, B: 4}}, bonds)

	bad := npyBytes(t, "<f8", false, 1, 2, func(b *bytes.Buffer) {
		require.NoError(t, binary.Write(b, binary.LittleEndian, []float64{3.5, 4}))
	})
	_, err = ReadNPY(bytes.NewReader(bad))
	assert.ErrorIs(t, err, ErrBadFormat)
}

func TestReadNPYRejectsGarbage(t *testing.T) {
	_, err := ReadNPY(strings.NewReader("not a numpy file at all"))
	assert.ErrorIs(t, err, ErrBadFormat)

	data := npyBytes(t, "<i8", false, 2, 4, func(b *bytes.Buffer) {})
	_, err = ReadNPY(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrBadShape)

	truncated := npyBytes(t, "<i8", false, 2, 2, func(b *bytes.Buffer) { b.Write(make([]byte, 8)) })
	_, err = ReadNPY(bytes.NewReader(truncated))
	assert.Error(t, err)
}

func TestReadNPYRejectsHugeShape(t *testing.T) {
	pair := func(b *bytes.Buffer) {
		require.NoError(t, binary.Write(b, binary.LittleEndian, []int64{0, 1}))
	}

	overflow := npyBytes(t, "<i8", false, 1<<61, 2, pair)
	_, err := ReadNPY(bytes.NewReader(overflow))
	assert.ErrorIs(t, err, ErrBadShape)

	empty := npyBytes(t, "<i8", false, 0, 2, func(*bytes.Buffer) {})
	_, err = ReadNPY(bytes.NewReader(empty))
	assert.ErrorIs(t, err, ErrBadShape)

	lying := npyBytes(t, "<i8", false, 1<<40, 2, pair)
	_, err = ReadNPY(bytes.NewReader(lying))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadCSV(t *testing.T) {
	in := "# bonds\n0,1\n1, 2, 1\n\n2,0\n"
	bonds, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []Bond{{A: 0, B: 1}, {A: 1, B: 2, Class: 1}, {A: 2, B: 0}}, bonds)

	_, err = ReadCSV(strings.NewReader("0,x\n"))
	assert.ErrorIs(t, err, ErrBadFormat)
	_, err = ReadCSV(strings.NewReader("0\n"))
	assert.ErrorIs(t, err, ErrBadShape)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ring.csv")
	require.NoError(t, os.WriteFile(path, []byte("0,1\n1,2\n2,3\n3,0\n"), 0o644))

	sites, p, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, sites)
	lists, err := neighbor.Build(sites, p)
	require.NoError(t, err)
	assert.Equal(t, 2, lists[0].Len())

	_, _, err = Load(filepath.Join(dir, "missing.npy"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
