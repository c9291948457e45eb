// Package store persists sweep results as plain numeric series.
//
// A series file holds three rows (betas, magnetizations, susceptibilities),
// each value followed by a comma, matching what the plotting scripts read.
package store

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"spin-mc/internal/core"
)

// Ext is the extension of series files.
const Ext = ".dat"

// ErrMalformed is returned when a series file does not hold three rows of
// equal length.
var ErrMalformed = errors.New("store: malformed series")

// Series is an ordered sequence of (beta, magnetization, susceptibility).
type Series struct {
	Name             string
	Betas            []float64
	Magnetizations   []float64
	Susceptibilities []float64
}

// Append records one run.
func (s *Series) Append(beta float64, r core.Report) {
	s.Betas = append(s.Betas, beta)
	s.Magnetizations = append(s.Magnetizations, r.Magnetization)
	s.Susceptibilities = append(s.Susceptibilities, r.Susceptibility)
}

// Len returns the number of points.
func (s *Series) Len() int { return len(s.Betas) }

// Less orders points by beta.
func (s *Series) Less(i, j int) bool { return s.Betas[i] < s.Betas[j] }

// Swap exchanges two points in all three columns.
func (s *Series) Swap(i, j int) {
	s.Betas[i], s.Betas[j] = s.Betas[j], s.Betas[i]
	s.Magnetizations[i], s.Magnetizations[j] = s.Magnetizations[j], s.Magnetizations[i]
	s.Susceptibilities[i], s.Susceptibilities[j] = s.Susceptibilities[j], s.Susceptibilities[i]
}

// Sorted returns a copy ordered by beta.
func (s *Series) Sorted() Series {
	out := Series{
		Name:             s.Name,
		Betas:            slices.Clone(s.Betas),
		Magnetizations:   slices.Clone(s.Magnetizations),
		Susceptibilities: slices.Clone(s.Susceptibilities),
	}
	sort.Stable(&out)
	return out
}

// Path returns where Save writes the series inside dir.
func (s *Series) Path(dir string) string {
	return filepath.Join(dir, s.Name+Ext)
}

// WriteTo serializes the series.
func (s *Series) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, row := range [][]float64{s.Betas, s.Magnetizations, s.Susceptibilities} {
		for _, v := range row {
			c, err := bw.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
			n += int64(c)
			if err != nil {
				return n, err
			}
			if err := bw.WriteByte(','); err != nil {
				return n, err
			}
			n++
		}
		if err := bw.WriteByte('\n'); err != nil {
			return n, err
		}
		n++
	}
	return n, bw.Flush()
}

// Save writes the series to <dir>/<name>.dat, creating dir if needed.
func (s *Series) Save(dir string) (string, error) {
	if s.Name == "" {
		return "", errors.New("store: series has no name")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create output dir")
	}
	path := s.Path(dir)
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "create series file")
	}
	if _, err := s.WriteTo(f); err != nil {
		f.Close()
		return "", errors.Wrapf(err, "write %s", path)
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrapf(err, "close %s", path)
	}
	return path, nil
}

// Read parses a series and sorts it by beta.
func Read(r io.Reader) (Series, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	var rows [][]float64
	for len(rows) < 3 && sc.Scan() {
		row, err := parseRow(sc.Text())
		if err != nil {
			return Series{}, errors.Wrapf(err, "row %d", len(rows)+1)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return Series{}, errors.Wrap(err, "read series")
	}
	if len(rows) != 3 || len(rows[1]) != len(rows[0]) || len(rows[2]) != len(rows[0]) {
		return Series{}, ErrMalformed
	}
	s := Series{Betas: rows[0], Magnetizations: rows[1], Susceptibilities: rows[2]}
	sort.Stable(&s)
	return s, nil
}

func parseRow(line string) ([]float64, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	// Every value is comma-terminated, so the last field is empty.
	if fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, errors.Wrap(ErrMalformed, err.Error())
		}
		out = append(out, v)
	}
	return out, nil
}

// Load reads the series at path. Its name is the file name without extension.
func Load(path string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return Series{}, errors.Wrap(err, "open series")
	}
	defer f.Close()
	s, err := Read(f)
	if err != nil {
		return Series{}, errors.Wrapf(err, "load %s", path)
	}
	s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return s, nil
}

// Summary describes one finished job next to its series file.
type Summary struct {
	ID                  string            `yaml:"id"`
	Name                string            `yaml:"name"`
	Model               string            `yaml:"model"`
	Topology            string            `yaml:"topology"`
	Anisotropy          float64           `yaml:"anisotropy"`
	Sites               int               `yaml:"sites"`
	Points              int               `yaml:"points"`
	Overflows           int               `yaml:"overflows"`
	CriticalTemperature *float64          `yaml:"critical_temperature,omitempty"`
	Started             time.Time         `yaml:"started"`
	Elapsed             time.Duration     `yaml:"elapsed"`
	Parameters          map[string]string `yaml:"parameters,omitempty"`
}

// WriteSummary writes sum as YAML to <dir>/<name>.yaml.
func WriteSummary(dir string, sum Summary) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create output dir")
	}
	data, err := yaml.Marshal(sum)
	if err != nil {
		return "", errors.Wrap(err, "encode summary")
	}
	path := filepath.Join(dir, sum.Name+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	return path, nil
}

// ReadSummary loads a summary written by WriteSummary.
func ReadSummary(path string) (Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Summary{}, errors.Wrap(err, "read summary")
	}
	var sum Summary
	if err := yaml.Unmarshal(data, &sum); err != nil {
		return Summary{}, errors.Wrapf(err, "decode %s", path)
	}
	return sum, nil
}
