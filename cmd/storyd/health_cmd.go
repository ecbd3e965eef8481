package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"storyd/pkg/types"
)

func newHealthCmd() *cobra.Command {
	var url string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:     "health",
		Short:   "Probe a running server's /health endpoint",
		Example: "  storyd health --url http://localhost:5000",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			h, err := probeHealth(ctx, http.DefaultClient, url)
			if err != nil {
				return err
			}
			return printHealth(cmd.OutOrStdout(), h)
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://localhost:5000", "Base URL of the storyd server")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Probe timeout")
	return cmd
}

func probeHealth(ctx context.Context, cli *http.Client, base string) (types.HealthResponse, error) {
	var h types.HealthResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/health", nil)
	if err != nil {
		return h, err
	}
	resp, err := cli.Do(req)
	if err != nil {
		return h, fmt.Errorf("probe: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return h, fmt.Errorf("probe: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return h, fmt.Errorf("probe: decode: %w", err)
	}
	return h, nil
}

func printHealth(w io.Writer, h types.HealthResponse) error {
	fmt.Fprintf(w, "status: %s (image provider %s, up %ds)\n", h.Status, h.ImageProvider, h.UptimeSeconds)
	for _, name := range []string{"gemini", h.ImageProvider, "tts"} {
		configured, ok := h.Services[name]
		if !ok {
			continue
		}
		line := fmt.Sprintf("  %-10s configured=%t", name, configured)
		s := h.Providers[name]
		if s.AvailableKeys != nil && s.TotalKeys != nil {
			line += fmt.Sprintf(" keys=%d/%d", *s.AvailableKeys, *s.TotalKeys)
		}
		if s.Status != "" {
			line += " " + s.Status
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "  cache      %d/%d entries, %d hits, %d misses\n", h.Cache.Entries, h.Cache.Capacity, h.Cache.Hits, h.Cache.Misses)
	if h.Services["gemini"] {
		return nil
	}
	return fmt.Errorf("gemini is not configured")
}
