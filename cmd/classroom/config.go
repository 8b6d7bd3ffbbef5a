package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Bidon15/classroom/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}
	cmd.AddCommand(newConfigShowCmd(a), newConfigInitCmd(a))
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			masked := a.cfg.Masked()
			if a.output == outputJSON {
				return a.printJSON(masked)
			}
			return a.printYAML(masked)
		},
	}
}

func newConfigInitCmd(a *app) *cobra.Command {
	var path, apiKey string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Long: `Write a config file with the default settings. Existing files are
never overwritten.

The API key can also be supplied later through CLASSROOM_API_KEY.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = filepath.Join(filepath.Dir(config.DefaultStatePath()), "config.yaml")
			}

			cfg := config.Default()
			cfg.API.Key = apiKey
			if err := config.WriteFile(path, cfg); err != nil {
				return err
			}

			if a.structured() {
				return a.printStructured(map[string]string{"path": path})
			}
			a.printf("%s Wrote %s\n", a.colorGreen("✓"), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "file to write (default $HOME/.classroom/config.yaml)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key to store in the file")
	return cmd
}
