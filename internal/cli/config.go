package cli

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/alanyoungcy/positionbook/internal/config"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(newConfigShowCmd(opts))
	return cmd
}

func newConfigShowCmd(opts *rootOptions) *cobra.Command {
	var syntax string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.RedactedConfig(opts.cfg)
			w := cmd.OutOrStdout()

			if opts.output == outputJSON {
				return render(w, outputJSON, "", cfg)
			}
			switch syntax {
			case "toml":
				return toml.NewEncoder(w).Encode(cfg)
			case "yaml":
				enc := yaml.NewEncoder(w)
				enc.SetIndent(2)
				if err := enc.Encode(cfg); err != nil {
					return err
				}
				return enc.Close()
			default:
				return fmt.Errorf("unknown syntax %q (valid: toml, yaml)", syntax)
			}
		},
	}

	cmd.Flags().StringVar(&syntax, "syntax", "toml", "file syntax to print (toml|yaml)")
	return cmd
}
