package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iTrooz/respcache/internal/cache"
	"github.com/iTrooz/respcache/internal/config"
	"github.com/iTrooz/respcache/internal/logging"
	"github.com/iTrooz/respcache/internal/proxy"
)

var purgeAll bool

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(initConfigCmd)
	rootCmd.AddCommand(versionCmd)

	purgeCmd.Flags().BoolVar(&purgeAll, "all", false, "Purge every cached entry, not just one address")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the caching proxy server",
	RunE:  handleServe,
}

var purgeCmd = &cobra.Command{
	Use:   "purge [address]",
	Short: "Remove cached entries for an address",
	Long: `Removes the cached entries stored directly under the given address,
for example "purge api.example.com/users". Subdirectories are kept.
With --all, every entry under the cache folder is removed instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: handlePurge,
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a default config file to the --config path",
	RunE:  handleInitConfig,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the respcache version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("respcache " + Version)
	},
}

func handleServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := logging.Init(cfg.Log); err != nil {
		return err
	}
	server, err := proxy.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create proxy server: %w", err)
	}
	return server.Start()
}

func handlePurge(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := logging.Init(cfg.Log); err != nil {
		return err
	}
	freshness, err := cfg.GetFreshness()
	if err != nil {
		return err
	}

	c := cache.New(cfg.Resolve(), cache.Request{}, cache.Options{Freshness: freshness})
	if !c.Enabled() {
		return fmt.Errorf("caching is disabled, nothing to purge")
	}

	if purgeAll {
		if err := c.ClearAll(); err != nil {
			return fmt.Errorf("purge failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Purged all cached entries")
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("an address is required unless --all is set")
	}
	if err := c.ClearByURI(args[0]); err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Purged entries under %s\n", args[0])
	return nil
}

func handleInitConfig(cmd *cobra.Command, args []string) error {
	if err := config.WriteDefault(configPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", configPath)
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
