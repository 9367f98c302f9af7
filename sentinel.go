package main

import (
	"errors"
	"strconv"
	"strings"
)

// NumberOrCol is a value parsed from one sacct cell: either a number in the
// column's base unit, or the raw text when the cell could not be read as one
// (header labels, "N/A", "UNLIMITED", ...).
type NumberOrCol struct {
	value uint64
	raw   string
	isNum bool
}

// Num returns a numeric sentinel.
func Num(v uint64) NumberOrCol {
	return NumberOrCol{value: v, isNum: true}
}

// Col returns a placeholder sentinel carrying text verbatim.
func Col(text string) NumberOrCol {
	return NumberOrCol{raw: text}
}

// memory units relative to the base unit (kilobytes)
var unitMultipliers = map[byte]uint64{
	'K': 1,
	'M': 1 << 10,
	'G': 1 << 20,
	'T': 1 << 30,
}

// ParseNumberOrCol reads a cell. An empty cell is zero, a plain integer is
// taken as is, and an integer with a K/M/G/T suffix is normalized to
// kilobytes. Slurm's per-node/per-cpu memory qualifier (n/c) is ignored.
func ParseNumberOrCol(text string) NumberOrCol {
	if text == "" {
		return Num(0)
	}
	if v, err := strconv.ParseUint(text, 10, 64); err == nil {
		return Num(v)
	}

	s := text
	if last := s[len(s)-1]; (last == 'n' || last == 'c') && len(s) > 2 {
		if _, ok := unitMultipliers[s[len(s)-2]]; ok {
			s = s[:len(s)-1]
		}
	}

	mult, ok := unitMultipliers[s[len(s)-1]]
	if !ok || len(s) == 1 {
		return Col(text)
	}
	v, err := strconv.ParseUint(s[:len(s)-1], 10, 64)
	if err != nil {
		return Col(text)
	}
	return Num(v * mult)
}

// Take returns the numeric value, or false for a placeholder. Callers must
// treat false as "cannot compute", never as zero.
func (n NumberOrCol) Take() (uint64, bool) {
	return n.value, n.isNum
}

func (n NumberOrCol) IsNum() bool {
	return n.isNum
}

func (n NumberOrCol) String() string {
	if n.isNum {
		return strconv.FormatUint(n.value, 10)
	}
	return n.raw
}

var errSlurmElapsed = errors.New("bad elapsed time format")

// parseSlurmElapsed reads slurm's [DD-[HH:]]MM:SS[.frac] duration into
// seconds. The fractional part is dropped.
func parseSlurmElapsed(s string) (uint64, error) {
	var days uint64
	if i := strings.IndexByte(s, '-'); i != -1 {
		d, err := strconv.ParseUint(s[:i], 10, 64)
		if err != nil {
			return 0, errSlurmElapsed
		}
		days = d
		s = s[i+1:]
	}
	if i := strings.IndexByte(s, '.'); i != -1 {
		if _, err := strconv.ParseUint(s[i+1:], 10, 64); err != nil {
			return 0, errSlurmElapsed
		}
		s = s[:i]
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, errSlurmElapsed
	}
	var total uint64
	for _, p := range parts {
		v, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return 0, errSlurmElapsed
		}
		total = total*60 + v
	}
	return total + days*24*3600, nil
}

// parseCPUTime turns a TotalCPU cell into a sentinel of seconds.
func parseCPUTime(text string) NumberOrCol {
	if text == "" {
		return Num(0)
	}
	secs, err := parseSlurmElapsed(text)
	if err != nil {
		return Col(text)
	}
	return Num(secs)
}

// parseTimeLimit turns a TimelimitRaw cell (minutes) into seconds.
func parseTimeLimit(text string) NumberOrCol {
	n := ParseNumberOrCol(text)
	if v, ok := n.Take(); ok {
		return Num(v * 60)
	}
	return n
}
