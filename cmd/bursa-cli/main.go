package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"

	"bursa/internal/app"
	"bursa/internal/config"
	"bursa/internal/domain"
	"bursa/internal/journal"
	"bursa/internal/render"
	"bursa/internal/session"
	"bursa/internal/util"
	"bursa/pkg/bursa"
)

const version = "0.1.0"

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: bursa-cli [-config path] <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  version       Print the CLI version\n")
	fmt.Fprintf(os.Stderr, "  health        Show backend health\n")
	fmt.Fprintf(os.Stderr, "  market        List monitored assets and prices\n")
	fmt.Fprintf(os.Stderr, "  leaderboard   Show the ranking\n")
	fmt.Fprintf(os.Stderr, "  login         Run the OTP login and show the participant\n")
	fmt.Fprintf(os.Stderr, "  trade         Submit a buy or sell order\n")
	fmt.Fprintf(os.Stderr, "  add SYMBOL    Start monitoring a symbol\n")
	fmt.Fprintf(os.Stderr, "  remove SYMBOL Stop monitoring a symbol\n")
	fmt.Fprintf(os.Stderr, "  export        Export the local journal to Parquet\n")
	fmt.Fprintf(os.Stderr, "\n")
}

func main() {
	flag.Usage = usage
	cfgPath := flag.String("config", envOr("BURSA_CONFIG", "config/bursa.yaml"), "path to config file")
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]
	if cmd == "version" {
		fmt.Printf("bursa-cli %s\n", version)
		return
	}

	_ = godotenv.Load()
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	logger := util.NewLogger(cfg.Logging.Level, os.Stderr)
	util.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger, cmd, args, os.Stdin, os.Stdout); err != nil {
		if d := bursa.Detail(err); d != "" {
			fmt.Fprintf(os.Stderr, "error: %s\n", d)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

var errUsage = errors.New("usage")

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, cmd string, args []string, in io.Reader, out io.Writer) error {
	client := bursa.NewClient(cfg.Backend.URL, bursa.WithTimeout(cfg.Backend.Timeout))

	switch cmd {
	case "health":
		status, err := client.Health(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "backend %s: %s\n", client.BaseURL(), status)
		return nil

	case "market":
		return runMarket(ctx, cfg, logger, args, out)

	case "leaderboard":
		return runLeaderboard(ctx, cfg, logger, args, out)

	case "login":
		return runLogin(ctx, cfg, logger, args, in, out)

	case "trade":
		return runTrade(ctx, cfg, logger, args, out)

	case "add", "remove":
		return runRoster(ctx, cfg, logger, cmd, args, out)

	case "export":
		return runExport(ctx, cfg, args, out)

	default:
		usage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func build(cfg *config.Config, logger *slog.Logger) (*app.State, func(), error) {
	st, closer, err := app.Build(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return st, func() { closer.Close() }, nil
}

// ---------------------------------------------------------------------------
// market / leaderboard
// ---------------------------------------------------------------------------

func runMarket(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("market", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	st, done, err := build(cfg, logger)
	if err != nil {
		return err
	}
	defer done()
	snap, err := st.Market.Refresh(ctx)
	if err != nil {
		return err
	}

	if *asJSON {
		assets := make([]domain.Asset, 0, len(snap.Assets))
		for _, sym := range snap.Symbols() {
			a, _ := snap.Asset(sym)
			assets = append(assets, a)
		}
		return writeJSON(out, assets)
	}
	if snap.Empty() {
		fmt.Fprintln(out, render.LoadingMarket)
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "SYMBOL\tNAME\tSECTOR\tPRICE\tCHANGE\tVOL\t")
	for _, sym := range snap.Symbols() {
		a, _ := snap.Asset(sym)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			a.Symbol, a.Name, a.Sector, render.FormatMoney(a.Price),
			render.FormatPercent(a.ChangePercent), render.FormatVolatility(a.Volatility))
	}
	return tw.Flush()
}

func runLeaderboard(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("leaderboard", flag.ContinueOnError)
	limit := fs.Int("n", cfg.UI.LeaderboardSize, "rows to show")
	me := fs.String("legajo", "", "highlight this participant")
	if err := fs.Parse(args); err != nil {
		return err
	}

	st, done, err := build(cfg, logger)
	if err != nil {
		return err
	}
	defer done()
	snap, err := st.Market.Refresh(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tLEGAJO\tTOTAL\tROI\t")
	for _, r := range render.LeaderboardRows(snap.Leaderboard, *me, *limit) {
		id := r.Identifier
		if r.Current {
			id += " *"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", r.Badge, id, r.Total, r.ROI)
	}
	return tw.Flush()
}

// ---------------------------------------------------------------------------
// login
// ---------------------------------------------------------------------------

func runLogin(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	usuario := fs.String("usuario", "", "legajo or username")
	if err := fs.Parse(args); err != nil {
		return err
	}

	st, done, err := build(cfg, logger)
	if err != nil {
		return err
	}
	defer done()

	reader := bufio.NewReader(in)
	input := *usuario
	for {
		if input == "" {
			p := st.Login.Prompt()
			fmt.Fprintf(out, "%s (%s): ", p.Label, p.Placeholder)
			line, err := reader.ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("reading input: %w", err)
			}
			input = strings.TrimSpace(line)
		}
		res, err := st.SubmitLogin(ctx, input)
		input = ""
		if err != nil {
			fmt.Fprintln(out, noticeText(st))
			continue
		}
		if res.Login == nil {
			if res.Message != "" {
				fmt.Fprintln(out, res.Message)
			}
			continue
		}
		break
	}

	sess := st.Sessions.Current()
	fmt.Fprintf(out, "Legajo %s  saldo %s\n", sess.Identity, render.FormatMoney(sess.User.Balance))
	holdings := render.HoldingRows(sess.User, st.Market.Snapshot())
	if len(holdings) == 0 {
		fmt.Fprintln(out, render.NoHoldings)
	}
	for _, h := range holdings {
		fmt.Fprintf(out, "  %-6s %s\n", h.Symbol, h.Quantity)
	}
	return nil
}

func noticeText(st *app.State) string {
	notices := st.Notices()
	if len(notices) == 0 {
		return ""
	}
	return notices[len(notices)-1].Text
}

// ---------------------------------------------------------------------------
// trade / roster
// ---------------------------------------------------------------------------

// beginSession starts a session for legajo from the backend snapshot. The
// backend identifies traders by legajo alone.
func beginSession(ctx context.Context, st *app.State, client app.UserLoader, legajo string) error {
	data, err := client.User(ctx, legajo)
	if err != nil {
		return err
	}
	st.Sessions.Begin(legajo, session.FromUserData(data))
	return nil
}

func runTrade(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("trade", flag.ContinueOnError)
	legajo := fs.String("legajo", "", "participant legajo (required)")
	asset := fs.String("asset", cfg.Market.DefaultAsset, "symbol")
	side := fs.String("side", "buy", "buy or sell")
	qty := fs.String("qty", "", "whole number of shares (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *legajo == "" || *qty == "" {
		fs.Usage()
		return errUsage
	}

	st, done, err := build(cfg, logger)
	if err != nil {
		return err
	}
	defer done()

	if _, err := st.Market.Refresh(ctx); err != nil {
		logger.Warn("market unavailable; journalled price will be 0", "error", err)
	}
	if err := beginSession(ctx, st, st.Users, *legajo); err != nil {
		return err
	}
	st.Select(strings.ToUpper(*asset))

	res, err := st.Trade(ctx, domain.Side(strings.ToLower(*side)), *qty)
	if err != nil {
		fmt.Fprintln(out, noticeText(st))
		return err
	}
	fmt.Fprintln(out, noticeText(st))
	fmt.Fprintln(out, render.FeedLine(res.Entry))
	fmt.Fprintf(out, "saldo %s\n", render.FormatMoney(res.User.Balance))
	return nil
}

func runRoster(ctx context.Context, cfg *config.Config, logger *slog.Logger, cmd string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	legajo := fs.String("legajo", "", "check this participant's holdings before removing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}
	symbol := fs.Arg(0)

	st, done, err := build(cfg, logger)
	if err != nil {
		return err
	}
	defer done()
	if _, err := st.Market.Refresh(ctx); err != nil {
		return err
	}

	if cmd == "add" {
		_, err = st.AddAsset(ctx, symbol)
	} else {
		if *legajo != "" {
			if err := beginSession(ctx, st, st.Users, *legajo); err != nil {
				return err
			}
		}
		err = st.RemoveAsset(ctx, symbol)
	}
	fmt.Fprintln(out, noticeText(st))
	return err
}

// ---------------------------------------------------------------------------
// export
// ---------------------------------------------------------------------------

func runExport(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	dir := fs.String("out", "export", "output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cfg.Journal.Path == "" {
		return errors.New("journal.path is not configured")
	}

	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer j.Close()

	exp, err := j.ExportParquet(ctx, *dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d trades -> %s\n", exp.Trades, exp.TradesPath)
	fmt.Fprintf(out, "%d chat messages -> %s\n", exp.Chats, exp.ChatPath)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
