package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/brewdex/brewery-harvester/internal/config"
	"github.com/brewdex/brewery-harvester/internal/domain"
	"github.com/brewdex/brewery-harvester/internal/harvest"
	"github.com/brewdex/brewery-harvester/pkg/breweries"
	"github.com/brewdex/brewery-harvester/pkg/httpclient"
)

type loadOptions struct {
	states  []string
	baseURL string
	timeout time.Duration
	json    bool
}

// stateOutput is the --json shape for one state.
type stateOutput struct {
	State     string           `json:"state"`
	Breweries []domain.Brewery `json:"breweries"`
	Error     string           `json:"error,omitempty"`
}

func newLoadCmd() *cobra.Command {
	opts := loadOptions{}
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load breweries, optionally filtered by state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLoad(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringSliceVarP(&opts.states, "state", "s", nil, "State filter (repeatable; empty loads the unfiltered list)")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", config.DefaultBreweriesBaseURL, "Brewery list endpoint")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", httpclient.DefaultTimeout, "Request timeout")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print results as JSON")
	return cmd
}

func runLoad(ctx context.Context, opts loadOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.timeout <= 0 {
		return fmt.Errorf("--timeout must be positive")
	}

	loader, err := breweries.NewRemoteLoader(httpclient.NewRestyClient(opts.timeout), opts.baseURL)
	if err != nil {
		return err
	}

	states := config.ParseStates(strings.Join(opts.states, ","))
	if len(states) == 0 {
		states = []string{""}
	}
	results := harvest.LoadAll(ctx, loader, states)

	if opts.json {
		err = printJSON(out, results)
	} else {
		err = printTable(out, results)
	}
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("load %s: %w", stateLabel(res.State), res.Err))
		}
	}
	return errors.Join(errs...)
}

func printTable(out io.Writer, results []harvest.StateResult) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATE FILTER\tNAME\tSTREET\tCITY\tSTATE")
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(tw, "%s\terror: %s\t\t\t\n", stateLabel(res.State), classify(res.Err))
			continue
		}
		for _, b := range res.Breweries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", stateLabel(res.State), b.Name, b.StreetOr("-"), b.City, b.State)
		}
	}
	return tw.Flush()
}

func printJSON(out io.Writer, results []harvest.StateResult) error {
	payload := make([]stateOutput, 0, len(results))
	for _, res := range results {
		entry := stateOutput{State: res.State, Breweries: res.Breweries}
		if res.Err != nil {
			entry.Error = classify(res.Err)
		}
		payload = append(payload, entry)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func classify(err error) string {
	var kind breweries.LoaderError
	if errors.As(err, &kind) {
		return kind.String()
	}
	return err.Error()
}

func stateLabel(state string) string {
	if state == "" {
		return "(all)"
	}
	return state
}
