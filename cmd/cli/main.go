package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/walletledger/internal/adapter/http/dto"
	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/infrastructure/auth"
)

type options struct {
	baseURL string
	timeout time.Duration
	token   string
	owner   string
	key     string
}

func (o *options) client() *apiClient {
	return newAPIClient(o.baseURL, o.token, o.owner, o.timeout)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "walletledger-cli",
		Short:         "Wallet ledger CLI tool",
		Long:          `A command line interface for interacting with the wallet ledger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.baseURL, "url", envOr("LEDGER_URL", "http://localhost:8080"), "Base URL of the ledger API")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	flags.StringVar(&opts.token, "token", os.Getenv("LEDGER_TOKEN"), "Bearer token")
	flags.StringVar(&opts.owner, "owner", os.Getenv("LEDGER_OWNER"), "Owner id sent as X-Owner-ID when no token is given")
	flags.StringVar(&opts.key, "idempotency-key", "", "Idempotency key for mutating commands (random when empty)")

	rootCmd.AddCommand(
		accountCmd(opts),
		depositCmd(opts),
		withdrawCmd(opts),
		transferCmd(opts),
		transactionsCmd(opts),
		reconcileCmd(opts),
		registerCmd(opts),
		loginCmd(opts),
		tokenCmd(),
	)
	return rootCmd
}

func accountCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account operations",
	}

	var currency string
	create := &cobra.Command{
		Use:   "create",
		Short: "Open an account for the caller",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/accounts",
				dto.CreateAccountRequest{Currency: currency}, opts.key)
			if err != nil {
				return err
			}
			return printData(cmd.OutOrStdout(), data)
		},
	}
	create.Flags().StringVar(&currency, "currency", "NGN", "ISO 4217 currency code")

	get := &cobra.Command{
		Use:   "get",
		Short: "Show the caller's account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/accounts/me", nil, "")
			if err != nil {
				return err
			}
			return printData(cmd.OutOrStdout(), data)
		},
	}

	cmd.AddCommand(create, get)
	return cmd
}

func movementCmd(opts *options, use, short, path string) *cobra.Command {
	var (
		accountID string
		amount    int64
	)
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := opts.client().do(cmd.Context(), http.MethodPost, path,
				dto.MovementRequest{AccountID: accountID, Amount: amount}, opts.key)
			if err != nil {
				return err
			}
			return printData(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "Account id")
	cmd.Flags().Int64Var(&amount, "amount", 0, "Amount in minor units")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func depositCmd(opts *options) *cobra.Command {
	return movementCmd(opts, "deposit", "Credit an account", "/api/v1/transactions/deposit")
}

func withdrawCmd(opts *options) *cobra.Command {
	return movementCmd(opts, "withdraw", "Debit an account", "/api/v1/transactions/withdraw")
}

func transferCmd(opts *options) *cobra.Command {
	var (
		from, to string
		amount   int64
	)
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Move funds between two accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/transactions/transfer",
				dto.TransferRequest{SenderAccountID: from, ReceiverAccountID: to, Amount: amount}, opts.key)
			if err != nil {
				return err
			}
			return printData(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Sender account id")
	cmd.Flags().StringVar(&to, "to", "", "Receiver account id")
	cmd.Flags().Int64Var(&amount, "amount", 0, "Amount in minor units")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func transactionsCmd(opts *options) *cobra.Command {
	var (
		page, limit int
		raw         bool
	)
	cmd := &cobra.Command{
		Use:   "transactions ACCOUNT_ID",
		Short: "List an account's transactions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("page", strconv.Itoa(page))
			q.Set("limit", strconv.Itoa(limit))
			path := "/api/v1/transactions/" + url.PathEscape(args[0]) + "?" + q.Encode()

			data, err := opts.client().do(cmd.Context(), http.MethodGet, path, nil, "")
			if err != nil {
				return err
			}
			if raw {
				return printData(cmd.OutOrStdout(), data)
			}

			var res dto.TransactionPageResponse
			if err := json.Unmarshal(data, &res); err != nil {
				return fmt.Errorf("failed to parse page: %w", err)
			}
			printPage(cmd.OutOrStdout(), &res)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", domain.DefaultPage, "Page number, starting at 1")
	cmd.Flags().IntVar(&limit, "limit", domain.DefaultPageSize, "Page size")
	cmd.Flags().BoolVar(&raw, "json", false, "Print the raw JSON page")
	return cmd
}

func reconcileCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile ACCOUNT_ID",
		Short: "Check an account balance against its transaction history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.client().do(cmd.Context(), http.MethodGet,
				"/api/v1/accounts/"+url.PathEscape(args[0])+"/reconciliation", nil, "")
			if err != nil {
				return err
			}

			var res dto.ReconciliationResponse
			if err := json.Unmarshal(data, &res); err != nil {
				return fmt.Errorf("failed to parse result: %w", err)
			}
			out := cmd.OutOrStdout()
			if !res.IsReconciled {
				fmt.Fprintf(out, "Reconciliation FAILED: recorded %d, calculated %d\n", res.RecordedBalance, res.CalculatedBalance)
				return fmt.Errorf("account %s is out of balance by %d", res.AccountID, res.Difference)
			}
			fmt.Fprintf(out, "Reconciliation PASSED: balance %d %s\n", res.RecordedBalance, res.Currency)
			return nil
		},
	}
}

func registerCmd(opts *options) *cobra.Command {
	var req dto.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/auth/register", req, opts.key)
			if err != nil {
				return err
			}
			return printData(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.Password, "password", os.Getenv("LEDGER_PASSWORD"), "Password")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "Last name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// loginCmd prints only the token so it can be exported as LEDGER_TOKEN.
func loginCmd(opts *options) *cobra.Command {
	var req dto.LoginRequest
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and print a bearer token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/auth/login", req, opts.key)
			if err != nil {
				return err
			}
			var res dto.LoginResponse
			if err := json.Unmarshal(data, &res); err != nil {
				return fmt.Errorf("failed to parse login response: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.Password, "password", os.Getenv("LEDGER_PASSWORD"), "Password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		secret string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token OWNER_ID",
		Short: "Issue a bearer token for an owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("--secret or JWT_SECRET is required")
			}
			token, err := auth.NewJWTManager(secret, ttl).Generate(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HMAC secret shared with the server")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

func printData(out io.Writer, data json.RawMessage) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	printJSON(out, v)
	return nil
}

func printJSON(out io.Writer, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(out, "Error formatting JSON: %v\n", err)
		return
	}
	fmt.Fprintln(out, string(data))
}

func printPage(out io.Writer, res *dto.TransactionPageResponse) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tAMOUNT\tFROM\tTO\tCREATED")
	for _, tx := range res.Transactions {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			truncate(tx.ID, 12), tx.Type, tx.Amount,
			truncate(tx.SenderAccountID, 12), truncate(tx.ReceiverAccountID, 12),
			tx.CreatedAt.Format(time.RFC3339))
	}
	_ = w.Flush()
	fmt.Fprintf(out, "page %d of %d (%d total)\n", res.Page, res.TotalPages, res.TotalCount)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
