package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/ssrhost"
	"github.com/vango-dev/ssrhost/pkg/entry"
)

func routesCmd() *cobra.Command {
	var (
		configPath string
		prod       bool
	)

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the page and API route tables",
		Long: `Print the page routes found in the pages directory and the
registered API routes.

With --prod the built pages directory is read instead of the sources.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			cfg, err := loadConfig(dir, serveOptions{configPath: configPath, prod: prod})
			if err != nil {
				return err
			}

			appCfg := cfg.AppConfig()
			app, err := ssrhost.New(cmd.Context(), appCfg)
			if err != nil {
				return err
			}
			defer app.Close()

			pages, err := app.Routes(cmd.Context())
			if err != nil {
				return err
			}
			return printRoutes(cmd, pages, app.API().Routes())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Project file (default: ssrhost.yaml in --dir)")
	cmd.Flags().BoolVar(&prod, "prod", false, "Read the production build")

	return cmd
}

func printRoutes(cmd *cobra.Command, pages []entry.Route, api []string) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATTERN\tFILE\tLAYOUTS")
	for _, r := range pages {
		layouts := "-"
		if len(r.Layouts) > 0 {
			layouts = strings.Join(r.Layouts, " > ")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Pattern, r.File, layouts)
	}
	for _, r := range api {
		fmt.Fprintf(tw, "%s\t(api)\t-\n", r)
	}
	return tw.Flush()
}
