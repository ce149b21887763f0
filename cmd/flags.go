package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/teemow/mahakaal/internal/config"
)

// addModelFlags registers the flags shared by commands that run the agent.
func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().String("model", "", "Model name (overrides model.name / MAHAKAAL_MODEL)")
	cmd.Flags().Int("max-rounds", 0, "Maximum model invocations per request")
	cmd.Flags().String("calendar-backend", "", "Calendar backend: google or memory")
}

// applyFlags copies explicitly set flags over the loaded configuration.
// Flags a command does not define are ignored.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	setString(flags, "addr", &cfg.Server.Addr)
	setString(flags, "metrics-addr", &cfg.Server.MetricsAddr)
	setString(flags, "frontend-url", &cfg.Server.FrontendURL)
	setString(flags, "db-path", &cfg.Session.DBPath)
	setString(flags, "model", &cfg.Model.Name)
	setString(flags, "calendar-backend", &cfg.Calendar.Backend)

	if f := flags.Lookup("allowed-origins"); f != nil && f.Changed {
		cfg.Server.AllowedOrigins = config.SplitList(f.Value.String())
	}
	if f := flags.Lookup("max-rounds"); f != nil && f.Changed {
		n, err := flags.GetInt("max-rounds")
		if err != nil {
			return err
		}
		cfg.Agent.MaxRounds = n
	}
	return nil
}

func setString(flags *pflag.FlagSet, name string, dst *string) {
	if f := flags.Lookup(name); f != nil && f.Changed {
		*dst = f.Value.String()
	}
}
