package main

import "fmt"

// Fallback labels double as the legend titles of the efficiency columns.
const (
	memEffLabel  = "MemEff"
	timeEffLabel = "TimeEff"
	cpuEffLabel  = "CPUEff"
)

func ratio(num, den NumberOrCol) (float64, bool) {
	n, ok := num.Take()
	if !ok {
		return 0, false
	}
	d, ok := den.Take()
	if !ok || d == 0 {
		return 0, false
	}
	return float64(n) / float64(d) * 100, true
}

func memRatio(r JobRecord) (float64, bool) {
	return ratio(r.MaxRSS, r.ReqMem)
}

func timeRatio(r JobRecord) (float64, bool) {
	return ratio(r.Elapsed, r.TimeLimit)
}

func cpuRatio(r JobRecord) (float64, bool) {
	cpus, ok := r.AllocCPUs.Take()
	if !ok {
		return 0, false
	}
	elapsed, ok := r.Elapsed.Take()
	if !ok {
		return 0, false
	}
	return ratio(r.CPUTime, Num(elapsed*cpus))
}

func formatPercent(v float64, ok bool, fallback string) string {
	if !ok {
		return fallback
	}
	return fmt.Sprintf("%.1f%%", v)
}

// MemEff is MaxRSS / ReqMem as a percentage, or "MemEff" when either is
// missing.
func MemEff(r JobRecord) string {
	v, ok := memRatio(r)
	return formatPercent(v, ok, memEffLabel)
}

// TimeEff is Elapsed / TimeLimit as a percentage, or "TimeEff".
func TimeEff(r JobRecord) string {
	v, ok := timeRatio(r)
	return formatPercent(v, ok, timeEffLabel)
}

// CPUEff is TotalCPU / (Elapsed × AllocCPUS) as a percentage, or "CPUEff".
func CPUEff(r JobRecord) string {
	v, ok := cpuRatio(r)
	return formatPercent(v, ok, cpuEffLabel)
}
