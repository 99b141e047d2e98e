// Command graphchat runs the tutorial graphs in a terminal chat.
//
//	graphchat chatbot   # single-node chatbot
//	graphchat tools     # chatbot with web search
//	graphchat memory    # chatbot that remembers the conversation
//	graphchat stream    # stream a joke token by token
//
// The model comes from LLM_MODEL (e.g. openai:gpt-4o-mini); other settings
// from graphchat.yaml, $GRAPHCHAT_CONFIG, .env and GRAPHCHAT_* variables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/graphchat/internal/lessons"
)

func main() {
	// SIGINT is left to the chat UI: it aborts a reply or ends the prompt.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "graphchat:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "graphchat",
		Short:         "Chat with LLM graphs from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	for _, l := range lessons.All() {
		root.AddCommand(lessonCmd(l))
	}
	return root
}

func lessonCmd(l lessons.Lesson) *cobra.Command {
	return &cobra.Command{
		Use:   l.Name,
		Short: l.Summary,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return lessons.Start(cmd.Context(), l.Name, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
