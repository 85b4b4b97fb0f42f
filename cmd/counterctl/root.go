package main

import (
	"os"
	"time"

	"github.com/amirphl/counter-clean-arch/app/client"
	"github.com/spf13/cobra"
)

const defaultServerURL = "http://localhost:8080"

type rootOptions struct {
	server  string
	timeout time.Duration
	id      string
	json    bool
}

func (o *rootOptions) client() client.CounterAPI {
	return client.NewCounterClient(o.server, o.timeout)
}

// newRootCmd builds the command tree. Flags live on a fresh rootOptions so
// each invocation starts clean.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "counterctl",
		Short: "Read and update counters over the counter API",
		Long: `counterctl talks to a running counter service.
Without --id every command addresses the default counter.`,
		SilenceUsage: true,
	}

	server := os.Getenv("COUNTER_SERVER_URL")
	if server == "" {
		server = defaultServerURL
	}
	root.PersistentFlags().StringVar(&opts.server, "server", server, "Counter API base URL (env COUNTER_SERVER_URL)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	root.PersistentFlags().StringVar(&opts.id, "id", "", "Counter id; empty means the default counter")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "Output in JSON format")

	root.AddCommand(
		newGetCmd(opts),
		newIncrementCmd(opts),
		newDecrementCmd(opts),
		newResetCmd(opts),
	)
	return root
}
