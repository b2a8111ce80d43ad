// Package stream frames a generation as an OpenAI chat.completion.chunk
// event stream.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tanu360/apple-intelligence-api/internal/core"
	"github.com/tanu360/apple-intelligence-api/internal/util"
)

// State is the framer's position in the stream lifecycle.
type State int

const (
	// StateInit: headers are out, no frame has been written.
	StateInit State = iota
	// StateStreaming: the role-bearing first frame has been written.
	StateStreaming
	// StateDone: terminal frame and sentinel written.
	StateDone
	// StateError: error frame and sentinel written.
	StateError
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateStreaming:
		return "streaming"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrStreamClosed is returned when writing after the sentinel.
var ErrStreamClosed = errors.New("stream already terminated")

// Writer is the flushable transport frames are written to.
type Writer interface {
	io.Writer
	Flush()
}

// Framer turns fragments into SSE frames for one response. All frames share
// the id, created and model given at construction. A Framer is not safe for
// concurrent use.
type Framer struct {
	w       Writer
	id      string
	created int64
	model   string
	logger  core.Logger

	state    State
	mode     core.DeltaMode
	previous string
	frames   int
}

// NewFramer creates a framer in StateInit.
func NewFramer(w Writer, id string, created int64, model string, logger core.Logger) *Framer {
	if logger == nil {
		logger = &core.NopLogger{}
	}
	return &Framer{
		w:       w,
		id:      id,
		created: created,
		model:   model,
		logger:  logger,
	}
}

// State returns the current state.
func (f *Framer) State() State {
	return f.state
}

// Frames returns the number of data frames written, sentinel excluded.
func (f *Framer) Frames() int {
	return f.frames
}

// SetMode tells the framer whether fragments are deltas or snapshots.
func (f *Framer) SetMode(mode core.DeltaMode) {
	f.mode = mode
}

// Run pulls fragments from fs until it ends, framing each one, and always
// closes fs. It returns nil when the stream completed, the generation error
// when an error frame was sent, or the context/transport error when the
// client went away and nothing more could be written.
func (f *Framer) Run(ctx context.Context, fs core.FragmentStream) error {
	defer func() {
		if err := fs.Close(); err != nil {
			f.logger.Debug("Closing fragment stream: %v", err)
		}
	}()
	f.SetMode(fs.Mode())

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fragment, err := fs.Next()
		if errors.Is(err, io.EOF) {
			return f.Finish()
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return f.failWith(err)
		}

		delta, err := f.delta(fragment)
		if err != nil {
			return f.failWith(err)
		}
		if err := f.Content(delta); err != nil {
			return err
		}
	}
}

func (f *Framer) failWith(cause error) error {
	if err := f.Fail(cause); err != nil {
		return err
	}
	return cause
}

// delta derives the new text carried by fragment. Cumulative snapshots must
// extend the previous snapshot; anything else is corruption.
func (f *Framer) delta(fragment string) (string, error) {
	if f.mode != core.DeltaCumulative {
		return fragment, nil
	}
	if !strings.HasPrefix(fragment, f.previous) {
		return "", core.NewInternalError("generation snapshot does not extend the previous snapshot",
			fmt.Errorf("snapshot of %d bytes does not start with previous %d bytes", len(fragment), len(f.previous)))
	}
	d := fragment[len(f.previous):]
	f.previous = fragment
	return d, nil
}

// Content writes one content frame. Empty content is skipped. The first
// frame carries the assistant role and moves the framer to StateStreaming.
func (f *Framer) Content(content string) error {
	if f.terminated() {
		return ErrStreamClosed
	}
	if content == "" {
		return nil
	}

	delta := core.StreamDelta{Content: &content}
	if f.state == StateInit {
		delta.Role = core.RoleAssistant
	}
	if err := f.writeChunk(core.StreamChoice{Delta: delta}); err != nil {
		return err
	}
	f.state = StateStreaming
	return nil
}

// Finish writes the terminal frame and the sentinel.
func (f *Framer) Finish() error {
	if f.terminated() {
		return ErrStreamClosed
	}
	finishReason := core.FinishReasonStop
	if err := f.writeChunk(core.StreamChoice{Delta: core.StreamDelta{}, FinishReason: &finishReason}); err != nil {
		return err
	}
	f.state = StateDone
	return f.writeDone()
}

// Fail writes an error frame for cause and the sentinel.
func (f *Framer) Fail(cause error) error {
	if f.terminated() {
		return ErrStreamClosed
	}
	apiErr := core.AsAPIError(cause)
	f.logger.Warn("Stream %s failed after %d frames: %v", f.id, f.frames, cause)

	data, err := util.MarshalJSON(apiErr.Body())
	if err != nil {
		return err
	}
	f.state = StateError
	if _, err := writeSSEData(f.w, data); err != nil {
		return err
	}
	f.frames++
	return f.writeDone()
}

func (f *Framer) terminated() bool {
	return f.state == StateDone || f.state == StateError
}

func (f *Framer) writeChunk(choice core.StreamChoice) error {
	chunk := core.StreamResponse{
		ID:                f.id,
		Object:            core.ChatCompletionChunkObjectType,
		Created:           f.created,
		Model:             f.model,
		Choices:           []core.StreamChoice{choice},
		SystemFingerprint: core.SystemFingerprint,
	}
	data, err := util.MarshalJSON(chunk)
	if err != nil {
		return err
	}
	if _, err := writeSSEData(f.w, data); err != nil {
		return err
	}
	f.frames++
	f.w.Flush()
	return nil
}

func (f *Framer) writeDone() error {
	if _, err := writeSSEDone(f.w); err != nil {
		return err
	}
	f.w.Flush()
	return nil
}

// writeSSEData writes SSE format data
func writeSSEData(w io.Writer, data []byte) (int, error) {
	return fmt.Fprintf(w, "%s%s%s", core.StreamChunkPrefix, data, core.StreamFrameSeparator)
}

// writeSSEDone writes SSE end marker
func writeSSEDone(w io.Writer) (int, error) {
	return fmt.Fprintf(w, "%s%s%s", core.StreamChunkPrefix, core.StreamChunkDoneMessage, core.StreamFrameSeparator)
}
