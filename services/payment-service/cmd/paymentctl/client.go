package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/tlsutil"
	grpcPresentation "github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/presentation/grpc"
)

// connOptions are the persistent flags shared by every API command.
type connOptions struct {
	addr      string
	token     string
	caFile    string
	plaintext bool
	timeout   time.Duration
}

func bindConnFlags(cmd *cobra.Command) *connOptions {
	opts := &connOptions{}
	f := cmd.PersistentFlags()
	f.StringVar(&opts.addr, "addr", envOr("PAYMENTCTL_ADDR", "localhost:9086"), "payment-service gRPC address")
	f.StringVar(&opts.token, "token", os.Getenv("PAYMENTCTL_TOKEN"), "bearer token of an admin or operator")
	f.StringVar(&opts.caFile, "ca-file", "", "CA certificate to verify the server")
	f.BoolVar(&opts.plaintext, "plaintext", false, "disable TLS (local development)")
	f.DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-call timeout")
	return opts
}

// call dials the operator API, invokes one method and prints the reply as JSON.
func (o *connOptions) call(ctx context.Context, out io.Writer, method string, req, resp any) error {
	if o.token == "" {
		return fmt.Errorf("a bearer token is required (--token or PAYMENTCTL_TOKEN)")
	}
	creds, err := tlsutil.ClientCredentials(o.caFile, o.plaintext)
	if err != nil {
		return err
	}
	conn, err := grpc.NewClient(o.addr,
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(grpcPresentation.CodecName)),
	)
	if err != nil {
		return fmt.Errorf("dial %s: %w", o.addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+o.token)

	if err := conn.Invoke(ctx, method, req, resp); err != nil {
		return err
	}
	return printJSON(out, resp)
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
