package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/studysync/studysync/internal/config"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "advanced",
	Short:   "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	Long: `Print the effective configuration: defaults, then the config file, then
STUDYSYNC_* environment variables (for example STUDYSYNC_NOTION_TOKEN).`,
	Run: func(cmd *cobra.Command, args []string) {
		asTOML, _ := cmd.Flags().GetBool("toml")
		out := cfg.Redacted()
		if jsonOutput {
			outputJSON(out)
			return
		}
		var err error
		if asTOML {
			err = out.WriteTOML(os.Stdout)
		} else {
			err = out.WriteYAML(os.Stdout)
		}
		if err != nil {
			FatalError("%v", err)
		}
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Run: func(cmd *cobra.Command, args []string) {
		if configPath != "" {
			fmt.Println(configPath)
			return
		}
		fmt.Println(config.DefaultConfigPath())
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		path := configPath
		if path == "" {
			path = config.DefaultConfigPath()
		}
		if _, err := os.Stat(path); err == nil && !force {
			FatalError("%s already exists (use --force to overwrite)", path)
		}
		if err := config.WriteFile(path, config.DefaultConfig()); err != nil {
			FatalError("%v", err)
		}
		fmt.Printf("Wrote %s\n", path)
	},
}

func init() {
	configShowCmd.Flags().Bool("toml", false, "print TOML instead of YAML")
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")

	configCmd.AddCommand(configShowCmd, configPathCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}
