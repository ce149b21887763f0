package cmd

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/mahakaal/internal/config"
)

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name  string
		cmd   func() *cobra.Command
		args  []string
		check func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "defaults leave config untouched",
			cmd:  newServeCmd,
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, config.Default(), cfg)
			},
		},
		{
			name: "serve flags",
			cmd:  newServeCmd,
			args: []string{
				"--addr", ":8080",
				"--metrics-addr", ":9191",
				"--allowed-origins", "https://a.example.com, https://b.example.com,",
				"--frontend-url", "https://app.example.com",
				"--db-path", "/tmp/chats.db",
				"--model", "gpt-4.1",
				"--max-rounds", "4",
				"--calendar-backend", "memory",
			},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, ":8080", cfg.Server.Addr)
				assert.Equal(t, ":9191", cfg.Server.MetricsAddr)
				assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
				assert.Equal(t, "https://app.example.com", cfg.Server.FrontendURL)
				assert.Equal(t, "/tmp/chats.db", cfg.Session.DBPath)
				assert.Equal(t, "gpt-4.1", cfg.Model.Name)
				assert.Equal(t, 4, cfg.Agent.MaxRounds)
				assert.Equal(t, config.BackendMemory, cfg.Calendar.Backend)
			},
		},
		{
			name: "flags a command lacks are ignored",
			cmd:  newMCPCmd,
			args: []string{"--calendar-backend", "memory"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, config.BackendMemory, cfg.Calendar.Backend)
				assert.Equal(t, config.DefaultAddr, cfg.Server.Addr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := tt.cmd()
			require.NoError(t, cmd.ParseFlags(tt.args))

			cfg := config.Default()
			require.NoError(t, applyFlags(cmd, cfg))
			tt.check(t, cfg)
		})
	}
}

func TestRootCommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "chat", "login", "mcp", "tools", "version"} {
		assert.Contains(t, names, want)
	}
}
