// pulsewatch is a terminal client for the StockPulse watchlist. It signs in
// with the sid cookie of a browser session and keeps the watchlist and its
// quotes in sync with the server.
//
// Usage:
//
//	pulsewatch [flags] list
//	pulsewatch [flags] add SYMBOL NAME
//	pulsewatch [flags] remove ITEM_ID
//	pulsewatch [flags] watch
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/abhivicks22/stockpulse/utils"
	"github.com/abhivicks22/stockpulse/watchlistsync"
)

func main() {
	server := flag.String("server", "http://localhost:8000", "Base url of the StockPulse server")
	sid := flag.String("sid", os.Getenv("PULSEWATCH_SID"), "Session id (sid cookie). Defaults to $PULSEWATCH_SID")
	interval := flag.Duration("interval", 30*time.Second, "Refresh interval of watch")
	timeout := flag.Duration("timeout", 10*time.Second, "Timeout of a single request")
	verbose := flag.Bool("v", false, "Log debug output to stderr")
	flag.Parse()

	utils.Logger.Out = os.Stderr
	utils.Logger.Level = logrus.WarnLevel
	if *verbose {
		utils.Logger.Level = logrus.DebugLevel
	}

	if *sid == "" {
		fmt.Fprintln(os.Stderr, "pulsewatch: -sid or PULSEWATCH_SID is required")
		os.Exit(2)
	}

	backend := watchlistsync.NewHTTPBackend(*server, *sid, *timeout)
	c := watchlistsync.NewController(backend, backend)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, c, flag.Args(), *interval, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "pulsewatch: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *watchlistsync.Controller, args []string, interval time.Duration, out io.Writer) error {
	if len(args) == 0 {
		args = []string{"list"}
	}

	switch args[0] {
	case "list":
		if err := c.Refresh(ctx); err != nil {
			return err
		}
		printState(out, c.Snapshot())
		return nil

	case "add":
		if len(args) < 3 {
			return fmt.Errorf("usage: add SYMBOL NAME")
		}
		if err := c.Refresh(ctx); err != nil {
			return err
		}
		name := strings.Join(args[2:], " ")
		err := <-c.AddSymbol(ctx, args[1], name)
		c.Wait()
		if err != nil {
			return fmt.Errorf("add %s: %w", args[1], err)
		}
		printState(out, c.Snapshot())
		return nil

	case "remove":
		if len(args) != 2 {
			return fmt.Errorf("usage: remove ITEM_ID")
		}
		if err := c.Refresh(ctx); err != nil {
			return err
		}
		err := <-c.RemoveSymbol(ctx, args[1])
		c.Wait()
		if err != nil {
			return fmt.Errorf("remove %s: %w", args[1], err)
		}
		printState(out, c.Snapshot())
		return nil

	case "watch":
		return watch(ctx, c, interval, out)
	}

	return fmt.Errorf("unknown command %q", args[0])
}

// watch refreshes every interval and prints the watchlist until ctx is done.
// Failed refreshes keep showing the last known state.
func watch(ctx context.Context, c *watchlistsync.Controller, interval time.Duration, out io.Writer) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintf(out, "refresh failed, showing last known state: %v\n", err)
		}
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprintf(out, "\n%s\n", time.Now().Format("15:04:05"))
		printState(out, c.Snapshot())

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func formatMoney(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func printState(out io.Writer, state watchlistsync.State) {
	if len(state.Items) == 0 {
		fmt.Fprintln(out, "Watchlist is empty")
		return
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSYMBOL\tNAME\tPRICE\tCHANGE\tCHANGE %")
	for _, it := range state.Items {
		id := it.Id
		if it.IsPlaceholder() {
			id = "(saving)"
		}
		q, ok := state.Quotes[it.Symbol]
		if !ok {
			fmt.Fprintf(w, "%s\t%s\t%s\t-\t-\t-\n", id, it.Symbol, it.Name)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s%%\n",
			id, it.Symbol, it.Name,
			formatMoney(q.Price), formatMoney(q.Change), formatMoney(q.ChangePercent))
	}
	w.Flush()
}
