package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Kinder1203/SpeakNode/internal/llm"
	"github.com/Kinder1203/SpeakNode/internal/tools"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive conversation against a dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.sessions.Close()

		sess, err := a.sessions.Get(dataset)
		if err != nil {
			return err
		}
		deps := tools.Deps{Store: sess.Store, Search: a.engine}

		fmt.Printf("speaknode chat (dataset %q). Type 'exit' to quit.\n", dataset)
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "exit" || line == "quit" {
				break
			}

			sess.Lock()
			history := append(sess.History, llm.Message{Role: "user", Content: line})
			state, err := a.orch.Answer(cmd.Context(), deps, history)
			if err != nil {
				sess.Unlock()
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			sess.History = state.Messages
			sess.Unlock()

			fmt.Println(state.FinalAnswer)
		}
		return scanner.Err()
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
