package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"storyd/internal/config"
)

func newConfigCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML, keys masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(*cfgPath)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg.Redacted()); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
