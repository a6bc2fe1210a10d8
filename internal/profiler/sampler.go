package profiler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"runtime/pprof"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/google/uuid"

	"syncer/internal/logging"
	"syncer/internal/procname"
)

const labelKey = "syncer_profiler"

// ThreadName names the OS thread running the sampling loop.
const ThreadName = "syncer-profiler"

// Sampler arms and disarms statistical sampling for the calling goroutine.
// Both operations are idempotent.
type Sampler interface {
	Activate(ctx context.Context, interval time.Duration) context.Context
	Deactivate(ctx context.Context)
}

// Sample is one captured goroutine stack.
type Sample struct {
	Stack Stack
	// AtEntry reports that the innermost frame was caught on its first line,
	// meaning the call was still being set up.
	AtEntry bool
	// Goroutines is the number of goroutines sharing this stack.
	Goroutines int
}

// StackSource captures the stacks of goroutines carrying the given label value.
type StackSource interface {
	Capture(label string) ([]Sample, error)
}

// Profiler is the goroutine-label based Sampler. One ticker goroutine per
// Profiler captures every armed goroutine on each tick.
type Profiler struct {
	store  *Store
	source StackSource
	logger *slog.Logger
	id     string
	now    func() time.Time

	timeMu sync.Mutex
	last   time.Time

	loopMu   sync.Mutex
	ticker   *time.Ticker
	interval time.Duration
	done     chan struct{}
	stopped  chan struct{}
}

// Option customises a Profiler.
type Option func(*Profiler)

// WithStackSource replaces the runtime goroutine profile.
func WithStackSource(source StackSource) Option {
	return func(p *Profiler) { p.source = source }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Profiler) { p.now = now }
}

// New constructs a Profiler recording into store.
func New(store *Store, logger *slog.Logger, opts ...Option) *Profiler {
	if store == nil {
		store = NewStore()
	}
	p := &Profiler{
		store:  store,
		source: goroutineSource{},
		logger: logging.NewComponentLogger(logger, "profiler"),
		id:     uuid.NewString(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.last = p.now()
	return p
}

// Store returns the backing store.
func (p *Profiler) Store() *Store {
	return p.store
}

// Activate tags the calling goroutine for sampling and starts the ticker if
// needed. A shorter interval than the running one tightens the ticker.
// Goroutines started from the returned context inherit the tag.
func (p *Profiler) Activate(ctx context.Context, interval time.Duration) context.Context {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	p.ensureLoop(interval)
	armed := pprof.WithLabels(ctx, pprof.Labels(labelKey, p.id))
	pprof.SetGoroutineLabels(armed)
	return armed
}

// Deactivate clears the sampling tag from the calling goroutine.
func (p *Profiler) Deactivate(ctx context.Context) {
	pprof.SetGoroutineLabels(pprof.WithLabels(ctx, pprof.Labels(labelKey, "")))
}

// Close stops the ticker goroutine. Armed goroutines stay tagged but are no
// longer sampled.
func (p *Profiler) Close() {
	p.loopMu.Lock()
	if p.ticker == nil {
		p.loopMu.Unlock()
		return
	}
	p.ticker.Stop()
	close(p.done)
	stopped := p.stopped
	p.ticker = nil
	p.loopMu.Unlock()
	<-stopped
}

func (p *Profiler) ensureLoop(interval time.Duration) {
	p.loopMu.Lock()
	defer p.loopMu.Unlock()
	if p.ticker != nil {
		if interval < p.interval {
			p.interval = interval
			p.ticker.Reset(interval)
		}
		return
	}
	p.interval = interval
	p.ticker = time.NewTicker(interval)
	p.done = make(chan struct{})
	p.stopped = make(chan struct{})
	go p.loop(p.ticker.C, p.done, p.stopped)
}

func (p *Profiler) loop(ticks <-chan time.Time, done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	defer procname.Pin(ThreadName, p.logger)()
	// The loop may inherit a tag from the goroutine that started it.
	pprof.SetGoroutineLabels(context.Background())
	for {
		select {
		case <-done:
			return
		case <-ticks:
			p.Tick()
		}
	}
}

// Tick captures armed goroutines once and splits the time since the
// previous tick across them, so charged self time adds up to wall time.
// Capture failures are logged and dropped.
func (p *Profiler) Tick() {
	samples, err := p.source.Capture(p.id)
	elapsed := p.advance()
	if err != nil {
		p.logger.Debug("profiler capture failed", logging.Error(err))
		return
	}
	var total int64
	for _, sample := range samples {
		total += int64(goroutineCount(sample))
	}
	if total == 0 {
		return
	}
	share := elapsed / time.Duration(total)
	// The first remainder nanoseconds go one each to the earliest interrupts.
	remainder := int64(elapsed % time.Duration(total))
	for _, sample := range samples {
		for range goroutineCount(sample) {
			charge := share
			if remainder > 0 {
				charge++
				remainder--
			}
			p.interrupt(sample, charge)
		}
	}
}

func goroutineCount(sample Sample) int {
	if sample.Goroutines < 1 {
		return 1
	}
	return sample.Goroutines
}

// advance swaps the last-sample timestamp and returns the elapsed delta.
func (p *Profiler) advance() time.Duration {
	p.timeMu.Lock()
	defer p.timeMu.Unlock()
	now := p.now()
	elapsed := now.Sub(p.last)
	p.last = now
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed
}

func (p *Profiler) interrupt(sample Sample, elapsed time.Duration) {
	frame := sample.Stack
	// A call caught on its entry line has not begun executing its body;
	// the time belongs to the caller.
	if sample.AtEntry && len(frame) > 1 {
		frame = frame[1:]
	}
	p.store.Record(frame, elapsed)
}

// goroutineSource reads the runtime goroutine profile.
type goroutineSource struct{}

func (goroutineSource) Capture(label string) ([]Sample, error) {
	var buf bytes.Buffer
	if err := pprof.Lookup("goroutine").WriteTo(&buf, 0); err != nil {
		return nil, fmt.Errorf("write goroutine profile: %w", err)
	}
	prof, err := profile.Parse(&buf)
	if err != nil {
		return nil, fmt.Errorf("parse goroutine profile: %w", err)
	}
	return samplesFromProfile(prof, label), nil
}

// samplesFromProfile converts labelled profile samples into trimmed stacks.
func samplesFromProfile(prof *profile.Profile, label string) []Sample {
	var out []Sample
	for _, s := range prof.Sample {
		if !hasLabel(s.Label[labelKey], label) {
			continue
		}
		stack, atEntry := convertLocations(s.Location)
		if len(stack) == 0 {
			continue
		}
		n := 1
		if len(s.Value) > 0 && s.Value[0] > 0 {
			n = int(s.Value[0])
		}
		out = append(out, Sample{Stack: stack, AtEntry: atEntry, Goroutines: n})
	}
	return out
}

func hasLabel(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

// convertLocations flattens inlined lines leaf first, drops scheduler
// frames at the leaf and the goroutine trampoline at the root.
func convertLocations(locs []*profile.Location) (Stack, bool) {
	type raw struct {
		loc     Location
		atEntry bool
	}
	var frames []raw
	for _, loc := range locs {
		for _, line := range loc.Line {
			if line.Function == nil {
				continue
			}
			start := int(line.Function.StartLine)
			entry := start > 0 && int(line.Line) == start
			if start == 0 {
				start = int(line.Line)
			}
			frames = append(frames, raw{
				loc: Location{
					File:   line.Function.Filename,
					Line:   start,
					Symbol: shortSymbol(line.Function.Name),
				},
				atEntry: entry,
			})
		}
	}
	for len(frames) > 1 && strings.HasPrefix(frames[0].loc.Symbol, "runtime.") {
		frames = frames[1:]
	}
	for len(frames) > 1 && frames[len(frames)-1].loc.Symbol == "runtime.goexit" {
		frames = frames[:len(frames)-1]
	}
	if len(frames) == 0 {
		return nil, false
	}
	stack := make(Stack, len(frames))
	for i, f := range frames {
		stack[i] = f.loc
	}
	return stack, frames[0].atEntry
}
