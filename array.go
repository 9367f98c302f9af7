package main

import (
	"fmt"
	"strconv"
	"strings"
)

// jobArrayRange accumulates contiguous task records of one array job.
type jobArrayRange struct {
	min, max uint64
	base     string
	template JobRecord
}

func (a *jobArrayRange) update(index uint64) {
	if index > a.max {
		a.max = index
	}
	if index < a.min {
		a.min = index
	}
}

func (a jobArrayRange) record() JobRecord {
	r := a.template
	r.JobID = fmt.Sprintf("%s[%d-%d]", a.base, a.min, a.max)
	return r
}

// splitArrayTask splits "<base>_<index>". Ids that already carry a
// collapsed "[..]" range, or whose suffix is not an integer, are not tasks.
func splitArrayTask(jobID string) (string, uint64, bool) {
	if strings.Contains(jobID, "[") {
		return "", 0, false
	}
	i := strings.LastIndexByte(jobID, '_')
	if i <= 0 || i == len(jobID)-1 {
		return "", 0, false
	}
	index, err := strconv.ParseUint(jobID[i+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return jobID[:i], index, true
}

// FoldArrays collapses runs of array-task records sharing a base id into a
// single record with id "base[min-max]". Tasks of one array are expected to
// be adjacent; an interruption starts a new range.
func FoldArrays(records []JobRecord) []JobRecord {
	out := make([]JobRecord, 0, len(records))
	var pending *jobArrayRange

	flush := func() {
		if pending != nil {
			out = append(out, pending.record())
			pending = nil
		}
	}

	for _, r := range records {
		base, index, ok := splitArrayTask(r.JobID)
		if !ok {
			flush()
			out = append(out, r)
			continue
		}
		if pending != nil && pending.base != base {
			flush()
		}
		if pending == nil {
			pending = &jobArrayRange{min: index, max: index, base: base, template: r}
			continue
		}
		pending.update(index)
	}
	flush()
	return out
}
