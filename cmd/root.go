package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "payment-approvals",
	Short: "Payment approvals service",
	Long:  "A chat-mediated payment approval service: proof intake, reviewer decisions, invite links and redelivery jobs.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
