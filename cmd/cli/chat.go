package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

const exitWord = "bye"

// Answerer is the slice of the agent the terminal commands need.
type Answerer interface {
	Handle(ctx context.Context, question string) (string, error)
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive session",
	Long:  `Read questions from the terminal until "bye" is typed. Earlier questions and answers stay in context for the session.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ledgerStore, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer ledgerStore.Close()

		assistant, err := newAssistant(ctx, ledgerStore)
		if err != nil {
			return err
		}

		return runREPL(ctx, assistant.NewConversation(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ledgerStore, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer ledgerStore.Close()

		assistant, err := newAssistant(ctx, ledgerStore)
		if err != nil {
			return err
		}

		reply, err := assistant.Handle(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	},
}

// runREPL 逐行读取问题，输入 bye 或 EOF 时结束。
func runREPL(ctx context.Context, assistant Answerer, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "User: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		question := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(question, exitWord) {
			return nil
		}
		if question == "" {
			continue
		}

		reply, err := assistant.Handle(ctx, question)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		fmt.Fprintf(out, "Assistant: %s\n", reply)
	}
}
