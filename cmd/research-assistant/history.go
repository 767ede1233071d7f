// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-assistant/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse and export past chat sessions",
	Long: `History lists the chat sessions recorded in the history database and
exports individual sessions as YAML.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded chat sessions",
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := store.Sessions(context.Background())
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions recorded.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-6s  %-25s  %-15s  %s\n", "ID", "Started", "Model", "Exchanges")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 60))
	for _, s := range sessions {
		fmt.Fprintf(os.Stdout, "%-6d  %-25s  %-15s  %d\n",
			s.ID, s.StartedAt.Format("2006-01-02 15:04:05"), s.Model, s.Exchanges)
	}
	return nil
}

var historyShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Export one session as YAML",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid session id %q", args[0])
	}

	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.ExportYAML(context.Background(), id, os.Stdout)
}

var historyExportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export one session to a file as YAML or JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryExport,
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid session id %q", args[0])
	}
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	w := os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "yaml", "":
		err = store.ExportYAML(context.Background(), id, w)
	case "json":
		err = store.ExportJSON(context.Background(), id, w)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}

	if output != "" {
		fmt.Printf("Exported session %d to %s\n", id, output)
	}
	return nil
}

func openHistory(cmd *cobra.Command) (*history.Store, error) {
	path, _ := cmd.Flags().GetString("history-db")
	return history.Open(path)
}

func init() {
	historyCmd.PersistentFlags().String("history-db", "history.db", "SQLite file holding session history")

	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	historyExportCmd.Flags().String("output", "", "write to this file instead of stdout")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)

	rootCmd.AddCommand(historyCmd)
}
