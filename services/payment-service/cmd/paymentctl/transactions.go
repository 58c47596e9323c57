package main

import (
	"github.com/spf13/cobra"

	grpcPresentation "github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/presentation/grpc"
)

func getCmd(conn *connOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get [transaction-id]",
		Short: "Show a payment transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return conn.call(cmd.Context(), cmd.OutOrStdout(), grpcPresentation.MethodGetTransaction,
				&grpcPresentation.TransactionIDRequest{TransactionID: args[0]}, &grpcPresentation.TransactionMsg{})
		},
	}
}

func checkCmd(conn *connOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check [transaction-id]",
		Short: "Reconcile a transaction with the gateway now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return conn.call(cmd.Context(), cmd.OutOrStdout(), grpcPresentation.MethodCheckTransaction,
				&grpcPresentation.TransactionIDRequest{TransactionID: args[0]}, &grpcPresentation.CheckStatusMsg{})
		},
	}
}

func refundCmd(conn *connOptions) *cobra.Command {
	var amount string
	cmd := &cobra.Command{
		Use:   "refund [transaction-id]",
		Short: "Refund a completed payment, fully or in part",
		Long: `Refund a completed payment.

Without --amount the whole remaining balance is refunded.

Examples:
  paymentctl refund 3f1c... --amount 150.00
  paymentctl refund 3f1c...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return conn.call(cmd.Context(), cmd.OutOrStdout(), grpcPresentation.MethodRefundTransaction,
				&grpcPresentation.RefundTransactionRequest{TransactionID: args[0], Amount: amount}, &grpcPresentation.RefundMsg{})
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "amount to refund (default: remaining balance)")
	return cmd
}

func cancelCmd(conn *connOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel [transaction-id]",
		Short: "Void a payment made today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return conn.call(cmd.Context(), cmd.OutOrStdout(), grpcPresentation.MethodCancelTransaction,
				&grpcPresentation.TransactionIDRequest{TransactionID: args[0]}, &grpcPresentation.RefundMsg{})
		},
	}
}

func resumeCmd(conn *connOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resume-effects [transaction-id]",
		Short: "Finish the booking updates and notifications of a completed payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return conn.call(cmd.Context(), cmd.OutOrStdout(), grpcPresentation.MethodResumeEffects,
				&grpcPresentation.TransactionIDRequest{TransactionID: args[0]}, &grpcPresentation.ResumeEffectsMsg{})
		},
	}
}
