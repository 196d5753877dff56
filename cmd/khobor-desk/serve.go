package main

import (
	"github.com/spf13/cobra"

	"github.com/Adda-Baaj/khobor-desk/internal/app"
)

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web desk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			application, err := app.New(ctx, c.cfg, c.log)
			if err != nil {
				return err
			}
			defer application.Close()

			return application.Run(ctx)
		},
	}

	cmd.Flags().String("addr", "", "listen address")
	cmd.Flags().String("state", "", "bbolt session state file (empty keeps state in memory)")
	cmd.Flags().String("publishers", "", "share publishers file")
	cmd.Flags().Bool("enrich", false, "scrape preview images for articles without one")
	bindFlags(c.v, cmd, map[string]string{
		"server.addr":     "addr",
		"state.path":      "state",
		"publishers.file": "publishers",
		"enrich.enabled":  "enrich",
	})
	return cmd
}
