// Command paymentctl is the operator CLI of the payment service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "paymentctl",
		Short:         "paymentctl - operate SportsMaker payment transactions",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	conn := bindConnFlags(rootCmd)

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(getCmd(conn))
	rootCmd.AddCommand(checkCmd(conn))
	rootCmd.AddCommand(refundCmd(conn))
	rootCmd.AddCommand(cancelCmd(conn))
	rootCmd.AddCommand(resumeCmd(conn))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
