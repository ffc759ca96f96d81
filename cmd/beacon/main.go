package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"beacon/internal/config"
	"beacon/internal/identity"
	"beacon/internal/provisioning"
)

// Version is set at build time via -ldflags "-X main.Version=vX.Y.Z"
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:     "beacon",
	Short:   "LED indicator device controlled over MQTT",
	Version: Version,
	Long: `beacon provisions Wi-Fi credentials, joins the network and drives a
single LED or an animated RGB strip from MQTT command topics.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".env", "Path to the configuration file")

	rootCmd.AddCommand(runCmd, forgetCmd, identityCmd, pairingCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *log.Logger {
	return log.New(os.Stderr, "", log.LstdFlags)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// resolveIdentity uses the configured MAC, or reads it from the interface
func resolveIdentity(cfg *config.Config) (identity.Identity, error) {
	if mac := cfg.MAC(); mac != "" {
		return identity.Parse(mac)
	}
	return identity.Detect(cfg.Iface())
}

func pairingFor(cfg *config.Config, id identity.Identity) provisioning.Pairing {
	return provisioning.Pairing{
		ServiceName: id.ServiceName(),
		Username:    cfg.ProvUsername(),
		Pop:         cfg.ProvPop(),
		Transport:   provisioning.DefaultTransport,
	}
}
