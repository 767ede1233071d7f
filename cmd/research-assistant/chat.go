// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-assistant/internal/chat"
	"github.com/pdiddy/research-assistant/internal/history"
	"github.com/pdiddy/research-assistant/internal/registry"
	"github.com/pdiddy/research-assistant/internal/secrets"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// defaultSystemPrompt frames the model as a tool-using research helper.
const defaultSystemPrompt = `You are a research assistant. Use the available tools to search for
academic papers, look up saved paper information, and answer questions
about them. Cite paper IDs when you reference specific papers.`

var chatCmd = &cobra.Command{
	Use:   "chat [query]",
	Short: "Chat with the research assistant",
	Long: `Chat connects to the MCP backends listed in server_config.json,
aggregates their tools, and runs the conversation loop against the
chat-completion API. With a query argument it answers once and exits;
without one it starts an interactive session (type 'quit' to leave).

Inside a session, @folders lists saved topics, @<topic> shows a topic's
papers, /prompts lists prompt templates, and /prompt <name> key=value
runs one.`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := chatConfig(cmd)

	cfg.APIKey = secrets.ResolveKey(cfg.APIKey, "OPENAI_API_KEY", "openai-api-key", loadedSecrets)
	if cfg.APIKey == "" {
		return fmt.Errorf("no API key: set OPENAI_API_KEY, --api-key, or .secrets/openai-api-key")
	}

	reg := registry.New()
	if err := reg.ConnectAll(ctx, cfg.ServerConfigFile, os.Stderr); err != nil {
		return err
	}
	defer reg.Close()

	if len(reg.Catalog()) == 0 {
		fmt.Fprintln(os.Stderr, "warning: no tools available, answering from the model alone")
	}

	loop := &chat.Loop{
		Completer:         chat.NewOpenAI(cfg),
		Backends:          reg,
		Out:               os.Stdout,
		SystemPrompt:      defaultSystemPrompt,
		MaxToolIterations: cfg.MaxToolIterations,
	}

	var store *history.Store
	if cfg.HistoryDB != "" {
		var err error
		store, err = history.Open(cfg.HistoryDB)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: history disabled: %v\n", err)
		} else {
			defer store.Close()
			sessionID, err := store.BeginSession(ctx, cfg.Model)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: history disabled: %v\n", err)
			} else {
				loop.Recorder = store.Recorder(ctx, sessionID)
			}
		}
	}

	// One-shot mode: the query is on the command line.
	if len(args) > 0 {
		query := strings.Join(args, " ")
		res, err := loop.RunQuery(ctx, query)
		if err != nil {
			return err
		}
		if loop.Recorder != nil {
			if err := loop.Recorder.RecordExchange(query, res.FinalText, res.ToolCalls); err != nil {
				fmt.Fprintf(os.Stderr, "warning: recording history: %v\n", err)
			}
		}
		return nil
	}

	return loop.Interactive(ctx, os.Stdin)
}

// chatConfig resolves chat settings from flags with viper fallbacks.
func chatConfig(cmd *cobra.Command) types.ChatConfig {
	cfg := types.ChatConfig{
		Model:             stringSetting(cmd, "model", "chat.model"),
		APIKey:            stringSetting(cmd, "api-key", "chat.api_key"),
		MaxTokens:         intSetting(cmd, "max-tokens", "chat.max_tokens"),
		MaxToolIterations: intSetting(cmd, "max-tool-iterations", "chat.max_tool_iterations"),
		ServerConfigFile:  stringSetting(cmd, "server-config", "chat.server_config_file"),
		HistoryDB:         stringSetting(cmd, "history-db", "chat.history_db"),
	}
	if noHistory, _ := cmd.Flags().GetBool("no-history"); noHistory {
		cfg.HistoryDB = ""
	}
	return cfg
}

// stringSetting prefers an explicitly set flag, then the viper key, then
// the flag default.
func stringSetting(cmd *cobra.Command, flag, key string) string {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetString(flag)
		return v
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	v, _ := cmd.Flags().GetString(flag)
	return v
}

func intSetting(cmd *cobra.Command, flag, key string) int {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetInt(flag)
		return v
	}
	if viper.IsSet(key) {
		return viper.GetInt(key)
	}
	v, _ := cmd.Flags().GetInt(flag)
	return v
}

func init() {
	chatCmd.Flags().String("model", "", "chat completion model (default gpt-4o-mini)")
	chatCmd.Flags().String("api-key", "", "API key (overrides OPENAI_API_KEY and .secrets/)")
	chatCmd.Flags().Int("max-tokens", 0, "output token budget per completion (default 2024)")
	chatCmd.Flags().Int("max-tool-iterations", 0, "tool round-trips allowed per query (default 10)")
	chatCmd.Flags().String("server-config", "server_config.json", "MCP backend configuration file")
	chatCmd.Flags().String("history-db", "history.db", "SQLite file for session history")
	chatCmd.Flags().Bool("no-history", false, "disable session history recording")

	rootCmd.AddCommand(chatCmd)
}
