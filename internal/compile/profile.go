package compile

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Profile accumulates per-op timing across calls of one compiled function.
// Enabled with WithProfiling; collection is cheap but not free.
type Profile struct {
	// ID identifies this function instance in logs and reports.
	ID string

	mu      sync.Mutex
	calls   int
	total   time.Duration
	compile time.Duration
	ops     map[string]*opStat
}

type opStat struct {
	Count int
	Total time.Duration
}

func newProfile(compileTime time.Duration) *Profile {
	return &Profile{
		ID:      uuid.NewString(),
		compile: compileTime,
		ops:     make(map[string]*opStat),
	}
}

func (p *Profile) recordOp(name string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.ops[name]
	if s == nil {
		s = &opStat{}
		p.ops[name] = s
	}
	s.Count++
	s.Total += d
}

func (p *Profile) recordCall(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.total += d
}

// Calls returns how many times the function has run.
func (p *Profile) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Total returns the cumulative wall time spent in calls.
func (p *Profile) Total() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

// CompileTime returns how long graph rewriting and planning took.
func (p *Profile) CompileTime() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.compile
}

// OpCount returns how many times the named op's kernel ran.
func (p *Profile) OpCount(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s := p.ops[name]; s != nil {
		return s.Count
	}
	return 0
}

// OpTime returns the cumulative time spent in the named op's kernels.
func (p *Profile) OpTime(name string) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s := p.ops[name]; s != nil {
		return s.Total
	}
	return 0
}

// String renders a per-op timing table, slowest first.
func (p *Profile) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	type row struct {
		name string
		stat *opStat
	}
	rows := make([]row, 0, len(p.ops))
	for name, s := range p.ops {
		rows = append(rows, row{name, s})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].stat.Total > rows[j].stat.Total })

	var sb strings.Builder
	fmt.Fprintf(&sb, "function %s: %d calls, %v total (compile %v)\n", p.ID, p.calls, p.total, p.compile)
	for _, r := range rows {
		fmt.Fprintf(&sb, "  %-12s %6d calls  %v\n", r.name, r.stat.Count, r.stat.Total)
	}
	return sb.String()
}
