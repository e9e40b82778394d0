package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var mappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "Manages contributor to payment account mappings",
}

var mappingsAddCmd = &cobra.Command{
	Use:   "add [github-username] [customer-id]",
	Short: "Maps a GitHub username to a payment customer id (cus_...)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newAPI().setMapping(cmd.Context(), args[0], args[1]); err != nil {
			return fmt.Errorf("failed to save mapping: %w", err)
		}
		successColor.Printf("✓ %s → %s\n", args[0], args[1])
		return nil
	},
}

var mappingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists all account mappings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		users, err := newAPI().listMappings(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list mappings: %w", err)
		}
		if outputJSON {
			return printJSON(users)
		}
		if len(users) == 0 {
			dimColor.Println("No account mappings configured.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "GITHUB USERNAME\tCUSTOMER ID")
		for _, u := range users {
			fmt.Fprintf(w, "%s\t%s\n", u.Handle, u.AccountID)
		}
		return w.Flush()
	},
}

var mappingsRemoveCmd = &cobra.Command{
	Use:     "rm [github-username]",
	Aliases: []string{"remove"},
	Short:   "Removes the account mapping for a GitHub username",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newAPI().deleteMapping(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to remove mapping: %w", err)
		}
		warnColor.Printf("Removed mapping for %s\n", args[0])
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra command registration
	mappingsCmd.AddCommand(mappingsAddCmd, mappingsListCmd, mappingsRemoveCmd)
	rootCmd.AddCommand(mappingsCmd)
}
