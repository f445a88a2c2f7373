/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndegiovanni/hywire/pkg/config"
)

func TestCaptureStoreFromConfig_Disabled(t *testing.T) {
	cfg := config.DefaultConfig()

	store, err := captureStoreFromConfig(cfg)
	require.NoError(t, err)
	assert.Nil(t, store)
}

func TestCaptureStoreFromConfig_Enabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Capture.Enabled = true
	cfg.Capture.Path = filepath.Join(t.TempDir(), "capture")

	store, err := captureStoreFromConfig(cfg)
	require.NoError(t, err)
	require.NotNil(t, store)
	require.NoError(t, store.Close())
}
