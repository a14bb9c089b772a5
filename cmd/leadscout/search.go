package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/FranksOps/leadscout/internal/export"
	"github.com/FranksOps/leadscout/internal/lead"
)

type searchOptions struct {
	location    string
	num         int
	engine      string
	provider    string
	scrape      bool
	scrapeLimit int
	format      string
	output      string
}

func newSearchCmd(a *app) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search for leads and optionally scrape their websites",
		Example: `  leadscout search "ร้านกาแฟ" --location "Chiang Mai, Thailand" --engine maps
  leadscout search dentist --location nationwide --engine all --format csv -o dentists.csv
  leadscout search "hotel" --scrape --scrape-limit 10 --format phones`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), a, strings.Join(args, " "), opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.location, "location", "l", "", `location, or "nationwide" for the city sweep`)
	f.IntVarP(&opts.num, "num", "n", lead.DefaultNum, "number of results to request")
	f.StringVarP(&opts.engine, "engine", "e", string(lead.EngineWeb), "web, maps, local, facebook or all")
	f.StringVarP(&opts.provider, "provider", "p", lead.ProviderSerpAPI, "serpapi or google-custom")
	f.BoolVar(&opts.scrape, "scrape", false, "scrape lead websites for contacts")
	f.IntVar(&opts.scrapeLimit, "scrape-limit", 0, "scrape at most this many leads (50 max)")
	f.StringVarP(&opts.format, "format", "f", string(export.FormatJSON), "output format: "+formatList())
	f.StringVarP(&opts.output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func formatList() string {
	names := make([]string, len(export.Formats))
	for i, f := range export.Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

func runSearch(ctx context.Context, a *app, query string, opts searchOptions, stdout io.Writer) error {
	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	if format.Binary() && opts.output == "" && isTerminal(stdout) {
		return errors.New("refusing to write xlsx to a terminal, use --output")
	}
	engine, err := lead.ParseEngine(opts.engine)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := build(a.cfg, a.logger, opts.scrape)
	if err != nil {
		return err
	}
	defer s.close()

	res, err := s.pipeline.Run(ctx, lead.SearchRequest{
		Query:       query,
		Location:    opts.location,
		Num:         opts.num,
		Engine:      engine,
		Provider:    opts.provider,
		Scrape:      opts.scrape,
		ScrapeLimit: opts.scrapeLimit,
	})
	if err != nil {
		return err
	}

	return writeOutput(opts.output, stdout, func(w io.Writer) error {
		return export.Write(w, format, res)
	})
}

// writeOutput runs write against path, or stdout when path is empty.
func writeOutput(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write output: %w", err)
	}
	return f.Close()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
