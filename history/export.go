package history

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Truncate aligns series to the length L of the shortest, keeping the most
// recent L values of each.  The inputs are not modified
func Truncate(series [][]float64) [][]float64 {
	if len(series) == 0 {
		return nil
	}
	l := len(series[0])
	for _, s := range series[1:] {
		if len(s) < l {
			l = len(s)
		}
	}
	out := make([][]float64, len(series))
	for i, s := range series {
		out[i] = append([]float64(nil), s[len(s)-l:]...)
	}
	return out
}

// formatSci formats like C's %.18e, which is what numpy.savetxt writes by default
func formatSci(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'e', 18, 64)
}

// WriteText writes the series truncated to a common length, one series per
// line, values separated by single spaces.  Every line ends in a newline and
// there is no header
func WriteText(w io.Writer, series [][]float64) error {
	bw := bufio.NewWriter(w)
	for _, row := range Truncate(series) {
		for j, v := range row {
			if j > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(formatSci(v))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// ReadText parses the output of WriteText, one series per line
func ReadText(r io.Reader) ([][]float64, error) {
	var out [][]float64
	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 64*1024), 64*1024*1024)
	line := 0
	for scan.Scan() {
		line++
		fields := strings.Fields(scan.Text())
		row := make([]float64, len(fields))
		for j, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %w", line, j+1, err)
			}
			row[j] = v
		}
		out = append(out, row)
	}
	return out, scan.Err()
}

// formatShort writes the shortest representation that parses back to v,
// always with a decimal point or exponent, e.g. 1.0, 0.25, 1e-05.  Positional
// notation is used for magnitudes in [1e-4, 1e16)
func formatShort(v float64) string {
	if a := math.Abs(v); math.IsNaN(v) || a != 0 && (a < 1e-4 || a >= 1e16) {
		return formatSciShort(v)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if strings.Contains(s, ".") {
		return s
	}
	return s + ".0"
}

func formatSciShort(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'e', -1, 64)
}

// AppendAmplitudes writes one log line for a set of peak amplitudes: a newline
// followed by sep and the value for each amplitude.  An empty set writes only
// the newline
func AppendAmplitudes(w io.Writer, sep string, amps []float64) error {
	var b strings.Builder
	b.WriteByte('\n')
	for _, a := range amps {
		b.WriteString(sep)
		b.WriteString(formatShort(a))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
