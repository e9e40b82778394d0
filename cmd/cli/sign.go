package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	ghclient "github.com/sevigo/bounty-warden/internal/github"
)

var signCmd = &cobra.Command{
	Use:   "sign [payload-file]",
	Short: "Prints the X-Hub-Signature-256 value for a webhook payload",
	Long: `Prints the X-Hub-Signature-256 value for a webhook payload, for replaying
deliveries against a server by hand. Reads stdin when the file is "-".

Examples:
  warden-cli sign --secret s3cret payload.json
  BW_WEBHOOK_SECRET=s3cret warden-cli sign - < payload.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		secret := viper.GetString("WEBHOOK_SECRET")
		if secret == "" {
			return fmt.Errorf("a webhook secret is required (--secret or BW_WEBHOOK_SECRET)")
		}

		var (
			payload []byte
			err     error
		)
		if args[0] == "-" {
			payload, err = io.ReadAll(os.Stdin)
		} else {
			payload, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to read payload: %w", err)
		}

		fmt.Println(ghclient.Sign(payload, []byte(secret)))
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra command registration
	signCmd.Flags().String("secret", "", "Webhook secret")
	if err := viper.BindPFlag("WEBHOOK_SECRET", signCmd.Flags().Lookup("secret")); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(signCmd)
}
