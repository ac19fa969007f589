package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const shellPrompt = "dayplan> "

// rolloverInterval is how often the shell checks whether the day changed
const rolloverInterval = time.Minute

func (cli *CLI) newShellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run commands interactively against one open session",
		Long: `Start an interactive session. Every line is a dayplan command; the
database and cache stay open between lines, and 'undo' can restore the
latest delete until its timer runs out. Type 'exit' or 'quit' to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cli.session != nil {
				return NewValidationError("shell", "command", "shell", "You are already in the shell")
			}
			return cli.withSession(cmd.Context(), func(s *session) error {
				return cli.runShell(cmd.Context(), s)
			})
		},
	}
}

func (cli *CLI) runShell(ctx context.Context, s *session) error {
	cli.session = s
	defer func() { cli.session = nil }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := s.eng.RunDayRollover(ctx, rolloverInterval); err != nil && ctx.Err() == nil {
			s.logger.Warn("day rollover stopped", "error", err)
		}
	}()

	scanner := bufio.NewScanner(cli.in)
	for {
		fmt.Fprint(cli.out, shellPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(cli.out)
			return scanner.Err()
		}

		args, err := splitArgs(scanner.Text())
		if err != nil {
			fmt.Fprintf(cli.errOut, "Error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" || args[0] == "quit" {
			return nil
		}

		root := cli.newRootCommand()
		root.SetArgs(args)
		if err := root.ExecuteContext(ctx); err != nil {
			fmt.Fprintf(cli.errOut, "Error: %v\n", err)
		}
	}
}

// splitArgs splits a shell line on whitespace, keeping single or double
// quoted runs together
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		quote   rune
		inWord  bool
	)
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				args = append(args, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inWord {
		args = append(args, current.String())
	}
	return args, nil
}
