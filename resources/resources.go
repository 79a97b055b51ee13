// Package resources sizes the worker pool from the machine it runs on.
//
// Every encode worker is assumed to need up to two GiB of memory, so the
// concurrency is bounded by memory as well as by the CPU count.
package resources

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// GiBPerWorker is the memory budget assumed for a single encode worker.
const GiBPerWorker = 2.0

// Machine describes the host resources relevant to worker sizing.
type Machine struct {
	CPUs   int
	RAMGiB float64
}

// Workers returns the estimated concurrency for this machine.
func (m Machine) Workers() int {
	return Estimate(m.CPUs, m.RAMGiB)
}

// Estimate returns ceil(min(cpus, ramGiB/2)), never less than 1.
func Estimate(cpus int, ramGiB float64) int {
	bound := math.Min(float64(cpus), ramGiB/GiBPerWorker)
	workers := int(math.Ceil(bound))
	if workers < 1 {
		return 1
	}
	return workers
}

// Detect reads the logical CPU count and total physical memory.
//
// When the CPU count cannot be read the Go runtime's view is used instead.
// A memory read failure is returned as an error.
func Detect(ctx context.Context) (Machine, error) {
	cpus, err := cpu.CountsWithContext(ctx, true)
	if err != nil || cpus <= 0 {
		cpus = runtime.NumCPU()
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Machine{CPUs: cpus}, fmt.Errorf("read physical memory: %w", err)
	}

	return Machine{
		CPUs:   cpus,
		RAMGiB: float64(vm.Total) / (1 << 30),
	}, nil
}

// DefaultWorkers detects the machine and estimates its concurrency. It
// falls back to a single worker when memory cannot be read.
func DefaultWorkers(ctx context.Context) int {
	m, err := Detect(ctx)
	if err != nil {
		return 1
	}
	return m.Workers()
}
