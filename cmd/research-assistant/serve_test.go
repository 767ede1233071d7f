// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	searchCfg, storeCfg := serveConfig(serveCmd)

	assert.Equal(t, 30*time.Second, searchCfg.Timeout)
	assert.Equal(t, "research-assistant/"+version, searchCfg.UserAgent)
	assert.Equal(t, 5, searchCfg.MaxRetries)
	assert.Equal(t, 5, searchCfg.MaxResults)
	assert.Equal(t, "papers", storeCfg.PapersDir)
}

func TestServeConfigViperFallback(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("search.timeout", "10s")
	viper.Set("search.user_agent", "configured-agent/1.0")
	viper.Set("search.max_results", 7)
	viper.Set("store.papers_dir", "/var/lib/papers")

	searchCfg, storeCfg := serveConfig(serveCmd)

	assert.Equal(t, 10*time.Second, searchCfg.Timeout)
	assert.Equal(t, "configured-agent/1.0", searchCfg.UserAgent)
	assert.Equal(t, 7, searchCfg.MaxResults)
	assert.Equal(t, "/var/lib/papers", storeCfg.PapersDir)
}

func TestServeConfigFlagBeatsViper(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("search.max_retries", 9)
	require.NoError(t, serveCmd.Flags().Set("max-retries", "2"))
	t.Cleanup(func() {
		require.NoError(t, serveCmd.Flags().Set("max-retries", "5"))
	})

	searchCfg, _ := serveConfig(serveCmd)

	assert.Equal(t, 2, searchCfg.MaxRetries)
}
