package console

import (
	"bytes"
	"context"
	"iter"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/randalmurphal/graphchat/pkg/llm"
	"github.com/randalmurphal/graphchat/pkg/prebuilt"
	"github.com/randalmurphal/graphchat/pkg/stategraph"
)

// verifyNoLeaks checks goroutines at test end. The runtime's signal
// watcher outlives signal.Stop, and the opencensus stats worker is started
// by an init in the genai transport chain; neither is ours.
func verifyNoLeaks(t *testing.T) {
	t.Helper()
	goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("os/signal.signal_recv"),
		goleak.IgnoreAnyFunction("os/signal.loop"),
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

var fixedNow = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

// step is one scripted graph event.
type step struct {
	node string
	msg  llm.Message
	err  error
}

// fakeGraph replays steps for each run and records the user inputs.
type fakeGraph struct {
	mu     sync.Mutex
	steps  [][]step
	run    int
	inputs []string
}

func newFakeGraph(turns ...[]step) *fakeGraph {
	return &fakeGraph{steps: turns}
}

func (g *fakeGraph) Stream(ctx stategraph.Context, input prebuilt.MessagesState, _ ...stategraph.RunOption) iter.Seq2[stategraph.Event[prebuilt.MessagesState], error] {
	g.mu.Lock()
	var script []step
	if g.run < len(g.steps) {
		script = g.steps[g.run]
	}
	g.run++
	if last, ok := input.LastMessage(); ok {
		g.inputs = append(g.inputs, last.Content)
	}
	g.mu.Unlock()

	return func(yield func(stategraph.Event[prebuilt.MessagesState], error) bool) {
		state := input.Clone()
		for _, st := range script {
			if err := ctx.Err(); err != nil {
				yield(stategraph.Event[prebuilt.MessagesState]{}, &stategraph.CancellationError{NodeID: st.node, Cause: err})
				return
			}
			if st.err != nil {
				yield(stategraph.Event[prebuilt.MessagesState]{}, st.err)
				return
			}
			state = state.Add(st.msg)
			ev := stategraph.Event[prebuilt.MessagesState]{Type: stategraph.EventNode, NodeID: st.node, State: state}
			if !yield(ev, nil) {
				return
			}
		}
	}
}

func (g *fakeGraph) recorded() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.inputs...)
}

// fakeLive records frames; onUpdate lets a test react to a frame, for
// example by cancelling the turn like Ctrl-C would.
type fakeLive struct {
	mu       sync.Mutex
	frames   []string
	stops    []bool
	cancel   context.CancelFunc
	onUpdate func(l *fakeLive)
}

func (l *fakeLive) factory() LiveFactory {
	return func(_ context.Context, cancel context.CancelFunc) (Live, error) {
		l.mu.Lock()
		l.cancel = cancel
		l.mu.Unlock()
		return l, nil
	}
}

func (l *fakeLive) Update(view string) {
	l.mu.Lock()
	l.frames = append(l.frames, view)
	hook := l.onUpdate
	l.mu.Unlock()
	if hook != nil {
		hook(l)
	}
}

func (l *fakeLive) Stop(keep bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stops = append(l.stops, keep)
	return nil
}

func (l *fakeLive) lastFrame() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.frames) == 0 {
		return ""
	}
	return l.frames[len(l.frames)-1]
}

// scriptedReader returns lines in order, then io.EOF-like err.
type scriptedReader struct {
	lines []string
	end   error
	reads int
}

func (r *scriptedReader) ReadLine(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if r.reads < len(r.lines) {
		line := r.lines[r.reads]
		r.reads++
		return line, nil
	}
	r.reads++
	return "", r.end
}

func newTestSession(t *testing.T, g Graph, live *fakeLive, reader LineReader, opts ...Option) (*Session, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	base := []Option{
		WithOutput(&out),
		WithInput(&bytes.Buffer{}),
		WithInteractive(false),
		WithClock(fixedNow),
		WithWidth(60),
	}
	if live != nil {
		base = append(base, WithLive(live.factory()))
	}
	if reader != nil {
		base = append(base, WithLineReader(reader))
	}
	sess, err := NewSession(g, append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(func() { _ = sess.Close() })
	return sess, &out
}

func assistant(id, content string) llm.Message {
	m := llm.AssistantMessage(content)
	m.ID = id
	return m
}

func toolResult(id, content string) llm.Message {
	m := llm.ToolMessage("call_"+id, "tavily_search", content)
	m.ID = id
	return m
}
