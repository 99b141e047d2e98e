package console

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/randalmurphal/graphchat/pkg/llm"
	"github.com/randalmurphal/graphchat/pkg/prebuilt"
	"github.com/randalmurphal/graphchat/pkg/stategraph"
)

const (
	responseTitle = "AI Response"
	jsonRuleTitle = "Tool-Call JSON Outputs"
	abortedText   = "⏹ Aborted current response."
)

// StreamTurn sends text as a user message and renders the reply while the
// graph runs.
//
// Text from each node is accumulated into one markdown panel. Messages
// that are JSON documents (typically tool results) are held back and
// printed pretty after the run finishes. If the user interrupts the turn
// or ctx is cancelled, the partial display is cleared, an abort notice is
// printed and StreamTurn returns nil. Run errors are returned.
func (s *Session) StreamTurn(ctx context.Context, text string) error {
	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	live, err := s.live(turnCtx, cancel)
	if err != nil {
		return fmt.Errorf("start display: %w", err)
	}

	input := prebuilt.MessagesState{Messages: []llm.Message{llm.UserMessage(text)}}
	gctx := stategraph.NewContext(turnCtx, stategraph.WithLogger(s.logger))
	opts := append(slices.Clone(s.runOpts), stategraph.WithThreadID(s.threadID))

	var (
		buf       strings.Builder
		blobs     []string
		lastID    string
		streamErr error
	)
	for ev, err := range s.graph.Stream(gctx, input, opts...) {
		if err != nil {
			streamErr = err
			break
		}
		if ev.Type != stategraph.EventNode {
			continue
		}

		msg, ok := ev.State.LastMessage()
		if !ok || (msg.ID != "" && msg.ID == lastID) {
			continue
		}
		lastID = msg.ID

		if blob, ok := parseJSON(msg.Content); ok {
			blobs = append(blobs, blob)
			continue
		}
		// A tool-call turn has no text but still replaces the spinner.
		buf.WriteString(msg.Content)
		live.Update(s.responsePanel(buf.String()))
	}

	aborted := turnCtx.Err() != nil
	if err := live.Stop(!aborted); err != nil {
		s.logger.Warn("live display failed", "error", err)
	}

	if aborted {
		s.println(s.styles.Abort.Render(abortedText))
		s.logger.Info("turn aborted", "thread_id", s.threadID)
		return nil
	}
	if streamErr != nil {
		return streamErr
	}

	s.printJSON(blobs)
	s.logger.Debug("turn complete", "thread_id", s.threadID, "chars", buf.Len(), "json_outputs", len(blobs))
	return nil
}

// responsePanel renders the accumulated reply.
func (s *Session) responsePanel(text string) string {
	title := s.now().Format("15:04:05") + " " + responseTitle
	return s.styles.panel(title, s.md.render(text), s.styles.ResponseBorder, s.styles.ResponseTitle, s.width)
}

// printJSON prints the held-back JSON documents under a rule. A document
// that cannot be re-formatted is printed as is.
func (s *Session) printJSON(blobs []string) {
	if len(blobs) == 0 {
		return
	}
	s.println(s.styles.rule(jsonRuleTitle, s.width))
	for _, blob := range blobs {
		text, err := formatJSON(blob)
		if err != nil {
			s.logger.Debug("json output not formatted", "error", err)
			text = blob
		}
		if err := highlight(s.out, text, s.color); err != nil {
			s.logger.Warn("write json output", "error", err)
		}
	}
}

func (s *Session) println(text string) {
	fmt.Fprintln(s.out, text)
}
