package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func chatCmd(opts *rootOptions, build builder) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Ask questions interactively until EOF or \"exit\"",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := setup(cmd, opts, build)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Buffer(make([]byte, 64*1024), 1024*1024)

			for {
				fmt.Fprint(out, "You: ")
				if !scanner.Scan() {
					fmt.Fprintln(out)
					return scanner.Err()
				}
				prompt := strings.TrimSpace(scanner.Text())
				if prompt == "" {
					continue
				}
				if strings.EqualFold(prompt, "exit") {
					return nil
				}

				ctx, cancel := opts.context(cmd.Context())
				answer, err := r.GetResponse(ctx, prompt)
				cancel()
				if err != nil {
					answer = displayError(err)
				}
				fmt.Fprintf(out, "NewsGPT: %s\n\n", answer)
			}
		},
	}
}
