package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/sevigo/bounty-warden/internal/core"
	"github.com/sevigo/bounty-warden/internal/credit"
	ghclient "github.com/sevigo/bounty-warden/internal/github"
)

var (
	creditCents    int64
	creditCurrency string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists tracked pull requests, most recently updated first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		prs, err := newAPI().listPRs(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list pull requests: %w", err)
		}
		if outputJSON {
			return printJSON(prs)
		}
		if len(prs) == 0 {
			dimColor.Println("No pull requests are currently tracked.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "PULL REQUEST\tSTATUS\tSCORE\tAUTHOR\tUPDATED\tTITLE")
		for _, pr := range prs {
			score := "-"
			if pr.Review != nil {
				score = fmt.Sprintf("%d", pr.Review.Score)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				pr.ID,
				statusColor(pr.Status).Sprint(pr.Status),
				score,
				pr.Author,
				pr.UpdatedAt.Local().Format(time.RFC822),
				pr.Title,
			)
		}
		return w.Flush()
	},
}

var showCmd = &cobra.Command{
	Use:   "show [owner/repo#number | pr-url]",
	Short: "Shows a tracked pull request with its rendered review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := ghclient.ResolveKey(args[0])
		if err != nil {
			return err
		}
		pr, err := newAPI().getPR(cmd.Context(), key)
		if err != nil {
			return fmt.Errorf("failed to fetch %s: %w", key, err)
		}
		if outputJSON {
			return printJSON(pr)
		}

		titleColor.Printf("%s  %s\n", pr.ID, pr.Title)
		fmt.Printf("Author:  %s\n", pr.Author)
		fmt.Printf("Status:  %s\n", statusColor(pr.Status).Sprint(pr.Status))
		if pr.CreditedAmount != nil {
			fmt.Printf("Credit:  %s to %s\n", credit.FormatAmount(*pr.CreditedAmount, creditCurrency), pr.PaymentAccountID)
		}
		if pr.Notes != "" {
			dimColor.Printf("Notes:   %s\n", strings.ReplaceAll(pr.Notes, "\n", "\n         "))
		}
		if pr.Review == nil {
			dimColor.Println("\nNo review recorded yet.")
			return nil
		}

		boldColor.Printf("\nScore %d/100, %d issue(s)\n", pr.Review.Score, len(pr.Review.Issues))
		for _, issue := range pr.Review.Issues {
			printIssue(issue)
		}
		return renderMarkdown(pr.Review.RawMessage)
	},
}

var pollCmd = &cobra.Command{
	Use:   "poll [owner/repo#number | pr-url]",
	Short: "Fetches the latest bot review for a pull request now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := ghclient.ResolveKey(args[0])
		if err != nil {
			return err
		}
		res, err := newAPI().poll(cmd.Context(), key)
		if err != nil {
			return fmt.Errorf("poll failed: %w", err)
		}
		if outputJSON {
			return printJSON(res)
		}
		if res.Pending {
			warnColor.Printf("%s: %s\n", res.ID, res.Message)
			return nil
		}
		fmt.Printf("%s: %s", res.ID, statusColor(res.Status).Sprint(res.Status))
		if res.Score != nil {
			fmt.Printf(" (score %d, %d issue(s))", *res.Score, res.IssueCount)
		}
		fmt.Println()
		if res.Message != "" {
			successColor.Println(res.Message)
		}
		return nil
	},
}

var creditCmd = &cobra.Command{
	Use:   "credit [owner/repo#number | pr-url]",
	Short: "Credits the author of a passing pull request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := ghclient.ResolveKey(args[0])
		if err != nil {
			return err
		}
		res, err := newAPI().credit(cmd.Context(), key, creditCents)
		if err != nil {
			return fmt.Errorf("credit failed: %w", err)
		}
		if outputJSON {
			return printJSON(res)
		}
		successColor.Printf("✓ %s\n", res.Message)
		dimColor.Printf("  transaction %s\n", res.TransactionID)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [owner/repo#number | pr-url]",
	Short: "Removes a tracked pull request record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := ghclient.ResolveKey(args[0])
		if err != nil {
			return err
		}
		if err := newAPI().deletePR(cmd.Context(), key); err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}
		warnColor.Printf("Deleted %s\n", key)
		return nil
	},
}

func printIssue(issue core.Issue) {
	label := strings.ToUpper(string(issue.Severity))
	switch issue.Severity {
	case core.SeverityCritical:
		errorColor.Printf("  [%s]", label)
	case core.SeverityModerate:
		warnColor.Printf("  [%s]", label)
	default:
		dimColor.Printf("  [%s]", label)
	}
	if issue.File != "" {
		boldColor.Printf(" %s", issue.File)
	}
	fmt.Printf(": %s\n", issue.Message)
}

func renderMarkdown(md string) error {
	if strings.TrimSpace(md) == "" {
		return nil
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Println(md)
		return nil
	}
	fmt.Print(out)
	return nil
}

func init() { //nolint:gochecknoinits // Cobra command registration
	creditCmd.Flags().Int64Var(&creditCents, "cents", 0, "Amount in minor units; 0 uses the server's configured amount")
	showCmd.Flags().StringVar(&creditCurrency, "currency", "usd", "Currency used to display credited amounts")

	rootCmd.AddCommand(listCmd, showCmd, pollCmd, creditCmd, deleteCmd)
}
