package main

import (
	"github.com/Sternrassler/cat-slideshow/internal/config"
	"github.com/Sternrassler/cat-slideshow/pkg/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the loaded configuration to subcommands.
type app struct {
	configPath string
	cfg        *config.Config
}

// flagKeys maps persistent flags to configuration keys.
var flagKeys = map[string]string{
	"api-key":   "api.key",
	"base-url":  "api.base_url",
	"delay-ms":  "api.delay_ms",
	"redis":     "redis.addr",
	"prefs":     "prefs.backend",
	"prefs-db":  "prefs.path",
	"log-level": "logging.level",
	"pretty":    "logging.pretty",
	"addr":      "server.addr",
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "catslide",
		Short:         "Cat image slideshow",
		Long:          "catslide pages through cat images by breed, prefetching the images ahead of the current one.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			for flag, key := range flagKeys {
				if f := cmd.Flags().Lookup(flag); f != nil {
					if err := v.BindPFlag(key, f); err != nil {
						return err
					}
				}
			}

			cfg, err := config.Load(v, a.configPath)
			if err != nil {
				return err
			}
			logging.Setup(cfg.LoggerConfig())
			a.cfg = cfg
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "Configuration file (default: catslide.yaml in ~/.config/catslide or .)")
	pf.String("api-key", "", "Cat API key")
	pf.String("base-url", "", "Cat API base URL")
	pf.Int("delay-ms", 0, "Artificial delay before every API request")
	pf.String("redis", "", "Redis address for the response cache (empty: no cache)")
	pf.String("prefs", "", "Preferences backend: bolt, redis or memory")
	pf.String("prefs-db", "", "Preferences database file for the bolt backend")
	pf.String("log-level", "", "Log level: debug, info, warn, error, disabled")
	pf.Bool("pretty", false, "Human-readable console logs")

	cmd.AddCommand(newBreedsCmd(a))
	cmd.AddCommand(newServeCmd(a))

	return cmd
}
