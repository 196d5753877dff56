package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Adda-Baaj/khobor-desk/internal/config"
	"github.com/Adda-Baaj/khobor-desk/internal/logger"
)

// cli carries what PersistentPreRunE resolves for the subcommands.
type cli struct {
	v          *viper.Viper
	configPath string
	cfg        config.Config
	log        logger.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "khobor-desk",
		Short: "Web desk and CLI for the AI news backend",
		Long: `khobor-desk searches news through the AI news backend, runs AI processing
(summary, tags, caption) on articles and generates social posts.

Run "khobor-desk serve" to start the web desk.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWith(c.v, c.configPath)
			if err != nil {
				return err
			}
			log, err := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			c.cfg, c.log = cfg, log
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default $KHOBOR_CONFIG)")
	flags.String("backend", "", "backend base url")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (json, console)")
	bindFlags(c.v, root, map[string]string{
		"backend.base_url": "backend",
		"log.level":        "log-level",
		"log.format":       "log-format",
	})

	root.AddCommand(newServeCmd(c), newSearchCmd(c), newProcessCmd(c))
	return root
}

// bindFlags maps config keys to flags so explicitly set flags override file and env values.
func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		flag := cmd.PersistentFlags().Lookup(name)
		if flag == nil {
			flag = cmd.Flags().Lookup(name)
		}
		if flag != nil {
			_ = v.BindPFlag(key, flag)
		}
	}
}
