// Command storectl is the operator CLI for the storefront database: it seeds
// admin accounts and inspects recent orders.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "storectl",
		Short:         "Operator tools for the storefront back end",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(adminCmd())
	rootCmd.AddCommand(ordersCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
