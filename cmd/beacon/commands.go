package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"beacon/internal/auth"
	"beacon/internal/command"
	"beacon/internal/credentials"
	"beacon/internal/storage"
)

var forgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Erase the stored Wi-Fi credentials",
	Long:  `Erases the stored network credentials. The device provisions again on its next start.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := storage.NewBoltStorage(cfg.DBPath())
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}

		if err := credentials.NewStore(store, newLogger()).Erase(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Wi-Fi credentials erased")
		return nil
	},
}

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Print the device identity and MQTT topics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		id, err := resolveIdentity(cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "MAC:           %s\n", id.MAC())
		fmt.Fprintf(out, "ID:            %s\n", id.ID())
		fmt.Fprintf(out, "Client ID:     %s\n", id.ClientID())
		fmt.Fprintf(out, "Service name:  %s\n", id.ServiceName())
		fmt.Fprintf(out, "Command topic: %s\n", id.CommandTopic())
		fmt.Fprintf(out, "State topic:   %s\n", id.StateTopic())
		fmt.Fprintf(out, "Also listens:  %s\n", command.DefaultTopic)
		fmt.Fprintf(out, "Commands:      %v\n", command.DeviceCommands())
		return nil
	},
}

var pairingCmd = &cobra.Command{
	Use:   "pairing",
	Short: "Print the provisioning payload and QR code link",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		id, err := resolveIdentity(cfg)
		if err != nil {
			return err
		}

		p := pairingFor(cfg, id)
		payload, err := p.Payload()
		if err != nil {
			return err
		}
		link, err := p.QRURL()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Payload: %s\n", payload)
		fmt.Fprintf(out, "QR code: %s\n", link)
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		role, _ := cmd.Flags().GetString("role")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		jwtManager := auth.NewJWTManager(cfg.JWTSecret(), cfg.JWTExpiration(), auth.DefaultIssuer)
		token, err := jwtManager.GenerateToken(subject, auth.Role(role))
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringP("subject", "s", "admin", "Token subject")
	tokenCmd.Flags().StringP("role", "r", string(auth.RoleOperator), "Token role (operator or viewer)")
}
