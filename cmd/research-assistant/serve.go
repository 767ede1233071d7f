// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-assistant/internal/arxiv"
	"github.com/pdiddy/research-assistant/internal/paperstore"
	"github.com/pdiddy/research-assistant/internal/researchserver"
	"github.com/pdiddy/research-assistant/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the research paper MCP server on stdio",
	Long: `Serve exposes the paper tools over the Model Context Protocol on
stdin/stdout: search_papers, extract_info, list_topics, and
get_paper_count, plus papers:// resources and the generate_search_prompt
template. Point any MCP client at it, including this binary's own chat
command via server_config.json.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	searchCfg, storeCfg := serveConfig(cmd)

	client := &arxiv.Client{
		HTTPClient: &http.Client{Timeout: searchCfg.Timeout},
		UserAgent:  searchCfg.UserAgent,
		MaxRetries: searchCfg.MaxRetries,
		MaxResults: searchCfg.MaxResults,
	}
	store := &paperstore.Store{Dir: storeCfg.PapersDir}

	return researchserver.New(client, store, version).Serve()
}

// serveConfig resolves the server settings: explicit flags win, then viper
// (config file or RESEARCH_ASSISTANT_* environment), then flag defaults.
func serveConfig(cmd *cobra.Command) (types.SearchConfig, types.StoreConfig) {
	searchCfg := types.SearchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   durationSetting(cmd, "timeout", "search.timeout"),
			UserAgent: stringSetting(cmd, "user-agent", "search.user_agent"),
		},
		MaxResults: intSetting(cmd, "max-results", "search.max_results"),
		MaxRetries: intSetting(cmd, "max-retries", "search.max_retries"),
	}
	storeCfg := types.StoreConfig{
		PapersDir: stringSetting(cmd, "papers-dir", "store.papers_dir"),
	}
	return searchCfg, storeCfg
}

func durationSetting(cmd *cobra.Command, flag, key string) time.Duration {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetDuration(flag)
		return v
	}
	if viper.IsSet(key) {
		return viper.GetDuration(key)
	}
	v, _ := cmd.Flags().GetDuration(flag)
	return v
}

func init() {
	serveCmd.Flags().String("papers-dir", "papers", "base directory for per-topic paper caches")
	serveCmd.Flags().Duration("timeout", 30*time.Second, "arXiv API request timeout")
	serveCmd.Flags().String("user-agent", "research-assistant/"+version, "User-Agent for arXiv API requests")
	serveCmd.Flags().Int("max-retries", 5, "retries when the arXiv API throttles")
	serveCmd.Flags().Int("max-results", arxiv.DefaultMaxResults, "papers returned when a search does not say how many")

	rootCmd.AddCommand(serveCmd)
}
