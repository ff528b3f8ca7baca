// Package cpuspec picks inference thread counts from the host CPU.
package cpuspec

import (
	"regexp"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// CPUSpec contains information about CPU specifications
type CPUSpec struct {
	BrandName        string
	PerformanceCores int
	LogicalCores     int
}

var (
	intelCoreRegex = regexp.MustCompile(`intel.*(?:core.*i[3579]-(\d{5})|core.*ultra\s+[579]\s+(?:processor\s+)?(\d{3}))`)
	appleChipRegex = regexp.MustCompile(`apple\s+(m[1-4](?:\s*(?:pro|max|ultra))?)`)
	spaceCollapser = regexp.MustCompile(`\s+`)
)

var (
	intelPCores = map[string]int{
		// 12th to 14th gen hybrid desktop parts
		"12900": 8, "12700": 8, "12600": 6, "12400": 6, "12100": 4,
		"13900": 8, "13700": 8, "13600": 6, "13500": 6, "13400": 6, "13100": 4,
		"14900": 8, "14700": 8, "14600": 6, "14400": 6, "14100": 4,
		// Core Ultra 200 series
		"285": 8, "265": 8, "255": 8, "235": 6, "225": 4,
	}
	applePCores = map[string]int{
		"m1": 4, "m1 pro": 8, "m1 max": 8, "m1 ultra": 16,
		"m2": 4, "m2 pro": 8, "m2 max": 12, "m2 ultra": 24,
		"m3": 4, "m3 pro": 8, "m3 max": 12, "m3 ultra": 24,
		"m4": 6, "m4 pro": 8, "m4 max": 12,
	}
)

// GetCPUSpec returns the specification of the host CPU.
func GetCPUSpec() CPUSpec {
	return CPUSpec{
		BrandName:        cpuid.CPU.BrandName,
		PerformanceCores: performanceCores(cpuid.CPU.BrandName),
		LogicalCores:     cpuid.CPU.LogicalCores,
	}
}

// OptimalThreadCount returns the recommended number of inference threads.
// Hybrid CPUs use their performance cores only; unknown CPUs use every
// logical core. The result never exceeds runtime.NumCPU, which is what a
// VM or container actually grants.
func (c CPUSpec) OptimalThreadCount() int {
	available := runtime.NumCPU()
	threads := c.LogicalCores
	if c.PerformanceCores > 0 {
		threads = c.PerformanceCores
	}
	if threads <= 0 || threads > available {
		return available
	}
	return threads
}

// ThreadCount resolves a configured thread count. Zero asks the CPU spec for
// a recommendation; anything above runtime.NumCPU is capped.
func ThreadCount(configured int) int {
	available := runtime.NumCPU()
	if configured <= 0 {
		return GetCPUSpec().OptimalThreadCount()
	}
	return min(configured, available)
}

// performanceCores returns the P-core count for known hybrid CPUs, 0 otherwise.
func performanceCores(brandName string) int {
	brand := spaceCollapser.ReplaceAllString(strings.ToLower(brandName), " ")

	if m := intelCoreRegex.FindStringSubmatch(brand); m != nil {
		model := m[1]
		if model == "" {
			model = m[2]
		}
		return intelPCores[model]
	}

	if m := appleChipRegex.FindStringSubmatch(brand); m != nil {
		chip := spaceCollapser.ReplaceAllString(strings.TrimSpace(m[1]), " ")
		return applePCores[chip]
	}

	return 0
}
