package console

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/randalmurphal/graphchat/pkg/stategraph/template"
)

// Prompt is the text shown when asking for input.
const Prompt = "You: "

const (
	bannerTitle    = "LangGraph Chat"
	bannerHeading  = "LangGraph CLI"
	bannerHint     = "Type 'exit' or 'help' to quit"
	goodbyeMessage = "Goodbye"

	inputCancelledText = "Input cancelled—sending final goodbye…"
	exitRequestedText  = "Exit requested—sending final goodbye…"
)

// helpPrompt is sent instead of the literal "help".
var helpPrompt = template.MustParse(
	"Please provide a prompt-oriented user perspective list of available tools and relevant usage " +
		"instructions.for this {framework} environment. No code leak.",
	template.WithDefaults(map[string]any{"framework": "LangGraph"}),
)

// HelpPrompt returns the message sent to the model for "help".
func HelpPrompt() string {
	return helpPrompt.MustFormat(nil)
}

// Run is the read-eval loop. It prints the banner, then reads a line and
// streams the reply until the user quits.
//
// "exit", "quit" and "q" (any case) as well as Ctrl-C or Ctrl-D at the
// prompt send a final "Goodbye" turn and return nil. "help" asks the model
// to describe its tools. Anything else, blank lines included, is trimmed
// and sent as a turn. Turn errors are shown and the loop continues.
// Run returns ctx's error if ctx ends first.
func (s *Session) Run(ctx context.Context) error {
	s.printBanner()

	for {
		line, err := s.reader.ReadLine(ctx, Prompt)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, ErrInterrupted) || errors.Is(err, io.EOF) {
			s.println(s.styles.Notice.Render(inputCancelledText))
			s.goodbye(ctx)
			return nil
		}
		if err != nil {
			return err
		}

		input := strings.TrimSpace(line)
		switch strings.ToLower(input) {
		case "exit", "quit", "q":
			s.println(s.styles.Notice.Render(exitRequestedText))
			s.goodbye(ctx)
			return nil

		case "help":
			if err := s.StreamTurn(ctx, HelpPrompt()); err != nil {
				s.logger.Error("help turn failed", "error", err)
				s.errorPanel("Error fetching help: " + err.Error())
			}

		default:
			s.echo(input)
			if err := s.StreamTurn(ctx, input); err != nil {
				s.logger.Error("turn failed", "error", err)
				s.errorPanel("Error during stream: " + err.Error())
			}
		}
	}
}

func (s *Session) goodbye(ctx context.Context) {
	if err := s.StreamTurn(ctx, goodbyeMessage); err != nil {
		s.logger.Error("goodbye turn failed", "error", err)
		s.errorPanel("Error during stream: " + err.Error())
	}
}

func (s *Session) printBanner() {
	body := s.styles.BannerHeading.Render(bannerHeading) + "\n" + bannerHint
	s.println(s.styles.panel(bannerTitle, body, s.styles.BannerBorder, s.styles.BannerTitle, s.width))
}

func (s *Session) echo(line string) {
	ts := s.now().Format("15:04:05")
	s.println(s.styles.Timestamp.Render(ts) + " " + s.styles.You.Render("You:") + " " + line)
}

func (s *Session) errorPanel(text string) {
	s.println(s.styles.panel("", s.styles.ErrorText.Render(text), s.styles.ErrorBorder, s.styles.ErrorText, s.width))
}
