package engine

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tanu360/apple-intelligence-api/internal/core"
)

// DefaultFakeFragments is what a Fake produces unless told otherwise.
var DefaultFakeFragments = []string{"Hello", " from", " the", " on-device", " model."}

// Fake is a deterministic capability for tests and local development.
type Fake struct {
	mu           sync.Mutex
	availability core.Availability
	languages    []string
	fragments    []string
	snapshots    []string
	mode         core.DeltaMode
	usage        *core.OpenAIUsage
	generateErr  error
	streamErr    error
	failAfter    int
	failErr      error
	delay        time.Duration
	requests     []core.GenerateRequest
	openStreams  atomic.Int64
}

// FakeOption configures a Fake.
type FakeOption func(*Fake)

// WithAvailability sets the reported availability.
func WithAvailability(a core.Availability) FakeOption {
	return func(f *Fake) { f.availability = a }
}

// WithLanguages sets the reported language list.
func WithLanguages(languages ...string) FakeOption {
	return func(f *Fake) {
		if len(languages) > 0 {
			f.languages = append([]string(nil), languages...)
		}
	}
}

// WithFragments sets the generated text, split into stream fragments.
func WithFragments(fragments ...string) FakeOption {
	return func(f *Fake) { f.fragments = append([]string(nil), fragments...) }
}

// WithMode selects incremental or cumulative streaming. Cumulative streams
// yield the running concatenation of the fragments.
func WithMode(mode core.DeltaMode) FakeOption {
	return func(f *Fake) { f.mode = mode }
}

// WithSnapshots makes the stream yield these exact cumulative snapshots,
// which need not extend each other.
func WithSnapshots(snapshots ...string) FakeOption {
	return func(f *Fake) {
		f.mode = core.DeltaCumulative
		f.snapshots = append([]string(nil), snapshots...)
	}
}

// WithUsage makes Generate report exact usage.
func WithUsage(usage core.OpenAIUsage) FakeOption {
	return func(f *Fake) { f.usage = &usage }
}

// WithGenerateError makes Generate fail.
func WithGenerateError(err error) FakeOption {
	return func(f *Fake) { f.generateErr = err }
}

// WithStreamError makes StreamGenerate fail before yielding anything.
func WithStreamError(err error) FakeOption {
	return func(f *Fake) { f.streamErr = err }
}

// WithMidStreamFailure makes the stream fail with err after n fragments.
func WithMidStreamFailure(n int, err error) FakeOption {
	return func(f *Fake) {
		f.failAfter = n
		f.failErr = err
	}
}

// WithFragmentDelay pauses before each fragment.
func WithFragmentDelay(d time.Duration) FakeOption {
	return func(f *Fake) { f.delay = d }
}

// NewFake creates an available Fake producing DefaultFakeFragments.
func NewFake(opts ...FakeOption) *Fake {
	f := &Fake{
		availability: core.Availability{Available: true, Eligible: true},
		languages:    []string{"en"},
		fragments:    append([]string(nil), DefaultFakeFragments...),
		failAfter:    -1,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SetAvailability changes the reported availability.
func (f *Fake) SetAvailability(a core.Availability) {
	f.mu.Lock()
	f.availability = a
	f.mu.Unlock()
}

// Availability reports the configured availability.
func (f *Fake) Availability(_ context.Context) core.Availability {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.availability
}

// SupportedLanguages reports the configured languages.
func (f *Fake) SupportedLanguages(_ context.Context) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.languages...)
}

// Generate returns the joined fragments.
func (f *Fake) Generate(ctx context.Context, req core.GenerateRequest) (*core.Generation, error) {
	f.record(req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	gen := &core.Generation{Text: strings.Join(f.fragments, "")}
	if f.usage != nil {
		usage := *f.usage
		gen.Usage = &usage
	}
	return gen, nil
}

// StreamGenerate returns a stream over the configured fragments.
func (f *Fake) StreamGenerate(ctx context.Context, req core.GenerateRequest) (core.FragmentStream, error) {
	f.record(req)
	if f.streamErr != nil {
		return nil, f.streamErr
	}

	items := f.fragments
	if f.mode == core.DeltaCumulative {
		items = f.snapshots
		if items == nil {
			items = cumulative(f.fragments)
		}
	}

	f.openStreams.Add(1)
	return &fakeStream{
		ctx:       ctx,
		owner:     f,
		items:     items,
		mode:      f.mode,
		failAfter: f.failAfter,
		failErr:   f.failErr,
		delay:     f.delay,
	}, nil
}

// Requests returns every request received so far.
func (f *Fake) Requests() []core.GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.GenerateRequest(nil), f.requests...)
}

// LastRequest returns the most recent request.
func (f *Fake) LastRequest() (core.GenerateRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return core.GenerateRequest{}, false
	}
	return f.requests[len(f.requests)-1], true
}

// OpenStreams counts streams that have not been closed.
func (f *Fake) OpenStreams() int64 {
	return f.openStreams.Load()
}

func (f *Fake) record(req core.GenerateRequest) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
}

func cumulative(fragments []string) []string {
	out := make([]string, 0, len(fragments))
	var sb strings.Builder
	for _, frag := range fragments {
		sb.WriteString(frag)
		out = append(out, sb.String())
	}
	return out
}

type fakeStream struct {
	ctx       context.Context
	owner     *Fake
	items     []string
	pos       int
	mode      core.DeltaMode
	failAfter int
	failErr   error
	delay     time.Duration
	closeOnce sync.Once
}

func (s *fakeStream) Next() (string, error) {
	if err := s.ctx.Err(); err != nil {
		return "", err
	}
	if s.failAfter >= 0 && s.pos >= s.failAfter {
		return "", s.failErr
	}
	if s.pos >= len(s.items) {
		return "", io.EOF
	}
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		select {
		case <-timer.C:
		case <-s.ctx.Done():
			timer.Stop()
			return "", s.ctx.Err()
		}
	}
	item := s.items[s.pos]
	s.pos++
	return item, nil
}

func (s *fakeStream) Mode() core.DeltaMode {
	return s.mode
}

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() {
		s.owner.openStreams.Add(-1)
	})
	return nil
}
