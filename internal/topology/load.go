package topology

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"spin-mc/internal/neighbor"
)

var npyMagic = []byte("\x93NUMPY")

var (
	npyDescr   = regexp.MustCompile(`'descr'\s*:\s*'([<>|=])([iuf])(\d+)'`)
	npyFortran = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	npyShape   = regexp.MustCompile(`'shape'\s*:\s*\(\s*(\d+)\s*,\s*(\d+)\s*,?\s*\)`)
)

// Load reads a bond list from path and returns the matching provider. Files
// ending in .npy hold a (bonds, 2|3) numeric array; anything else is parsed as
// CSV with the same columns. Errors are returned before any provider exists.
func Load(path string, strengths []float64) (int, neighbor.Provider, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, errors.Wrap(err, "open bond file")
	}
	defer f.Close()

	var bonds []Bond
	if strings.EqualFold(filepath.Ext(path), ".npy") {
		bonds, err = ReadNPY(f)
	} else {
		bonds, err = ReadCSV(f)
	}
	if err != nil {
		return 0, nil, errors.Wrapf(err, "read %s", path)
	}
	sites, p, err := FromBonds(bonds, strengths)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "bonds in %s", path)
	}
	return sites, p, nil
}

// ReadNPY decodes a two-dimensional NumPy array of bond rows.
func ReadNPY(r io.Reader) ([]Bond, error) {
	br := bufio.NewReader(r)
	magic := make([]byte, len(npyMagic)+2)
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, errors.Wrap(err, "npy preamble")
	}
	if !bytes.Equal(magic[:len(npyMagic)], npyMagic) {
		return nil, errors.Wrap(ErrBadFormat, "missing npy magic")
	}

	var headerLen int
	switch major := magic[len(npyMagic)]; major {
	case 1:
		var n uint16
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, errors.Wrap(err, "npy header length")
		}
		headerLen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, errors.Wrap(err, "npy header length")
		}
		headerLen = int(n)
	default:
		return nil, errors.Wrapf(ErrBadFormat, "npy version %d", major)
	}
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, errors.Wrap(err, "npy header")
	}

	descr := npyDescr.FindSubmatch(header)
	shape := npyShape.FindSubmatch(header)
	if descr == nil || shape == nil {
		return nil, errors.Wrapf(ErrBadFormat, "npy header %q", header)
	}
	fortran := false
	if m := npyFortran.FindSubmatch(header); m != nil {
		fortran = string(m[1]) == "True"
	}
	rows, err := strconv.Atoi(string(shape[1]))
	if err != nil || rows <= 0 {
		return nil, errors.Wrapf(ErrBadShape, "npy array has %s rows", shape[1])
	}
	cols, err := strconv.Atoi(string(shape[2]))
	if err != nil || (cols != 2 && cols != 3) {
		return nil, errors.Wrapf(ErrBadShape, "npy array has %s columns", shape[2])
	}

	var order binary.ByteOrder = binary.LittleEndian
	if descr[1][0] == '>' {
		order = binary.BigEndian
	}
	kind := descr[2][0]
	width, err := strconv.Atoi(string(descr[3]))
	if err != nil {
		return nil, errors.Wrapf(ErrBadFormat, "npy dtype width %s", descr[3])
	}
	decode, err := npyDecoder(kind, width, order)
	if err != nil {
		return nil, err
	}
	if rows > math.MaxInt/(cols*width) {
		return nil, errors.Wrapf(ErrBadShape, "npy array of %d rows is too large", rows)
	}

	// The header may lie about the row count, so the buffer only grows with
	// the bytes actually present.
	size := rows * cols * width
	raw, err := io.ReadAll(io.LimitReader(br, int64(size)))
	if err != nil {
		return nil, errors.Wrap(err, "npy data")
	}
	if len(raw) < size {
		return nil, errors.Wrapf(io.ErrUnexpectedEOF, "npy data has %d of %d bytes", len(raw), size)
	}
	at := func(row, col int) (int, error) {
		i := row*cols + col
		if fortran {
			i = col*rows + row
		}
		return decode(raw[i*width : (i+1)*width])
	}

	bonds := make([]Bond, rows)
	for row := range bonds {
		vals := [3]int{}
		for col := 0; col < cols; col++ {
			v, err := at(row, col)
			if err != nil {
				return nil, errors.Wrapf(err, "row %d", row)
			}
			vals[col] = v
		}
		bonds[row] = Bond{A: vals[0], B: vals[1], Class: vals[2]}
	}
	return bonds, nil
}

func npyDecoder(kind byte, width int, order binary.ByteOrder) (func([]byte) (int, error), error) {
	switch {
	case kind == 'i' && width == 1:
		return func(b []byte) (int, error) { return int(int8(b[0])), nil }, nil
	case kind == 'u' && width == 1:
		return func(b []byte) (int, error) { return int(b[0]), nil }, nil
	case kind == 'i' && width == 2:
		return func(b []byte) (int, error) { return int(int16(order.Uint16(b))), nil }, nil
	case kind == 'u' && width == 2:
		return func(b []byte) (int, error) { return int(order.Uint16(b)), nil }, nil
	case kind == 'i' && width == 4:
		return func(b []byte) (int, error) { return int(int32(order.Uint32(b))), nil }, nil
	case kind == 'u' && width == 4:
		return func(b []byte) (int, error) { return int(order.Uint32(b)), nil }, nil
	case kind == 'i' && width == 8:
		return func(b []byte) (int, error) { return int(int64(order.Uint64(b))), nil }, nil
	case kind == 'u' && width == 8:
		return func(b []byte) (int, error) { return int(order.Uint64(b)), nil }, nil
	case kind == 'f' && width == 8:
		return func(b []byte) (int, error) {
			return floatIndex(math.Float64frombits(order.Uint64(b)))
		}, nil
	case kind == 'f' && width == 4:
		return func(b []byte) (int, error) {
			return floatIndex(float64(math.Float32frombits(order.Uint32(b))))
		}, nil
	}
	return nil, errors.Wrapf(ErrBadFormat, "unsupported npy dtype %c%d", kind, width)
}

func floatIndex(f float64) (int, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, errors.Wrapf(ErrBadFormat, "non-integral index %v", f)
	}
	return int(f), nil
}

// ReadCSV decodes bond rows "a,b[,class]". Blank lines and lines starting with
// '#' are skipped.
func ReadCSV(r io.Reader) ([]Bond, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var bonds []Bond
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "csv")
		}
		if len(rec) != 2 && len(rec) != 3 {
			return nil, errors.Wrapf(ErrBadShape, "record %d has %d fields", line, len(rec))
		}
		var vals [3]int
		for i, field := range rec {
			v, err := strconv.Atoi(strings.TrimSpace(field))
			if err != nil {
				return nil, errors.Wrapf(ErrBadFormat, "record %d field %d: %v", line, i, err)
			}
			vals[i] = v
		}
		bonds = append(bonds, Bond{A: vals[0], B: vals[1], Class: vals[2]})
	}
	return bonds, nil
}
