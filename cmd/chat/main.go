package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"kbchat/tui"
)

func main() {
	var serverURL string

	rootCmd := &cobra.Command{
		Use:   "kbchat-client",
		Short: "Terminal chat client for the kbchat knowledge-base service",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := tea.NewProgram(tui.NewModel(serverURL), tea.WithAltScreen())
			_, err := p.Run()
			return err
		},
	}

	rootCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080",
		"base URL of the kbchat server")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
