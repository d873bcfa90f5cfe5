// Package profiling wraps runtime/pprof and runtime/trace behind the
// --cpuprofile/--memprofile flags on codeindex's root command, for
// diagnosing a slow build over a large repository.
package profiling

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// Profiler owns the open profile files for one CLI invocation.
type Profiler struct {
	cpuFile   *os.File
	traceFile *os.File
}

// NewProfiler returns an idle Profiler; nothing is captured until one of
// its Start/Write methods is called.
func NewProfiler() *Profiler {
	return &Profiler{}
}

// StartCPU begins sampling CPU usage into path, for the walk/split/embed
// stages that run between here and the returned cleanup call.
func (p *Profiler) StartCPU(path string) (cleanup func(), err error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create CPU profile file: %w", err)
	}

	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to start CPU profile: %w", err)
	}

	p.cpuFile = f

	return func() {
		pprof.StopCPUProfile()
		_ = p.cpuFile.Close()
		p.cpuFile = nil
	}, nil
}

// WriteHeap snapshots live heap allocations to path, typically taken right
// after a build finishes to see what the chunk/embedding buffers held on to.
func (p *Profiler) WriteHeap(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create heap profile file: %w", err)
	}
	defer func() { _ = f.Close() }()

	runtime.GC()

	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("failed to write heap profile: %w", err)
	}

	return nil
}

// StartTrace begins an execution trace at path, useful for seeing how the
// walker/splitter/embedder stages interleave across goroutines.
func (p *Profiler) StartTrace(path string) (cleanup func(), err error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file: %w", err)
	}

	if err := trace.Start(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to start trace: %w", err)
	}

	p.traceFile = f

	return func() {
		trace.Stop()
		_ = p.traceFile.Close()
		p.traceFile = nil
	}, nil
}

// WriteAllocs writes a cumulative allocation profile to path, covering
// every allocation made so far rather than only objects still live.
func (p *Profiler) WriteAllocs(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create allocs profile file: %w", err)
	}
	defer func() { _ = f.Close() }()

	runtime.GC()

	if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
		return fmt.Errorf("failed to write allocs profile: %w", err)
	}

	return nil
}

// WriteGoroutine dumps stack traces for every running goroutine to path,
// useful when a build run against a large tree looks stuck.
func (p *Profiler) WriteGoroutine(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create goroutine profile file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := pprof.Lookup("goroutine").WriteTo(f, 1); err != nil {
		return fmt.Errorf("failed to write goroutine profile: %w", err)
	}

	return nil
}

// WriteBlock writes a contention profile to path, for spotting where the
// worker pool stalls on a shared mutex or channel.
func (p *Profiler) WriteBlock(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create block profile file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := pprof.Lookup("block").WriteTo(f, 0); err != nil {
		return fmt.Errorf("failed to write block profile: %w", err)
	}

	return nil
}

// MemStats reads a fresh runtime.MemStats snapshot for stats reporting.
func MemStats() runtime.MemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m
}

// FormatBytes renders a byte count at whatever unit (B/KB/MB/GB) keeps the
// number readable, for index-size reporting in `codeindex stats`.
func FormatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
