// Command hypervisor-ctl is a debug client for exercising a running
// hypervisor's HTTP surface by hand: register a session with a freshly
// generated client key, query /healthz, and print its own build version.
// It prints raw server responses and does not submit programs for
// execution. It is a development aid, not part of the server's
// request/response contract.
package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/spf13/cobra"

	"github.com/cexlabs/hypervisor/pkg/version"
)

var baseURL string

func main() {
	root := &cobra.Command{
		Use:   "hypervisor-ctl",
		Short: "Debug client for the confidential execution hypervisor",
	}
	root.PersistentFlags().StringVar(&baseURL, "addr", "http://localhost:8080", "hypervisor base URL")

	root.AddCommand(newKeypairCmd())
	root.AddCommand(newHealthCmd())
	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newKeypairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keypair",
		Short: "Generate a client keypair and register a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, err := secp256k1.GeneratePrivateKey()
			if err != nil {
				return fmt.Errorf("generate client key: %w", err)
			}
			pubHex := hex.EncodeToString(priv.PubKey().SerializeCompressed())

			body, err := json.Marshal(map[string]string{"pubkey": pubHex})
			if err != nil {
				return err
			}

			resp, err := postJSON(cmd.Context(), "/encrypt/create_keypair", body)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			out, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}

			fmt.Printf("client_private_key: %x\n", priv.Serialize())
			fmt.Printf("client_public_key:  %s\n", pubHex)
			fmt.Printf("server_response:    %s\n", out)
			return nil
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Query /healthz",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, baseURL+"/healthz", nil)
			if err != nil {
				return err
			}
			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			out, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			fmt.Printf("status: %s\nbody:   %s\n", resp.Status, out)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print hypervisor-ctl's build version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version.String())
			return nil
		},
	}
}

func postJSON(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	client := &http.Client{Timeout: 5 * time.Second}
	return client.Do(req)
}
