// Command clinicctl is the operator CLI: nurses compose and submit
// administrations, delivery staff restock, managers read the summary.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "clinicctl",
		Short:         "Clinic administrations and stock from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("api", "", "API base URL (default API_BASE_URL)")
	rootCmd.PersistentFlags().String("session", "", "session file (default in the user config dir)")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(whoamiCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(medicineCmd())
	rootCmd.AddCommand(serviceCmd())
	rootCmd.AddCommand(administerCmd())
	rootCmd.AddCommand(stockCmd())
	rootCmd.AddCommand(restockCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(receiptCmd())
	return rootCmd
}
