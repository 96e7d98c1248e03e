// Command fetch queries the upstream providers from the terminal, sharing the
// server's configuration and cache.
//
//	fetch quote AAPL
//	fetch news [TSLA]
//	fetch batch "AAPL,MSFT,BRK.A"
package main

import (
    "context"
    "encoding/json"
    "fmt"
    "io"
    "os"
    "os/signal"
    "syscall"

    "github.com/spf13/cobra"

    "stocknews/internal/aggregate"
    "stocknews/internal/app"
    "stocknews/internal/config"
    "stocknews/internal/logger"
)

type options struct {
    configPath string
    logLevel   string
    compact    bool
}

func newRootCmd() *cobra.Command {
    opts := &options{}
    root := &cobra.Command{
        Use:           "fetch",
        Short:         "Fetch quotes and news the way the server does",
        SilenceUsage:  true,
        SilenceErrors: true,
    }
    root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("CONFIG_FILE"), "config file (yaml or json)")
    root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")
    root.PersistentFlags().BoolVar(&opts.compact, "compact", false, "print JSON on one line")

    root.AddCommand(&cobra.Command{
        Use:   "quote SYMBOL",
        Short: "Latest quote for one symbol",
        Args:  cobra.ExactArgs(1),
        RunE: func(cmd *cobra.Command, args []string) error {
            return run(cmd, opts, func(ctx context.Context, a *app.App) (any, error) {
                return a.Quotes.Quote(ctx, aggregate.NormalizeSymbol(args[0]))
            })
        },
    })
    root.AddCommand(&cobra.Command{
        Use:   "news [SYMBOL]",
        Short: "General market news, or news for one symbol",
        Args:  cobra.MaximumNArgs(1),
        RunE: func(cmd *cobra.Command, args []string) error {
            req := aggregate.GeneralNews()
            if len(args) == 1 {
                req = aggregate.SymbolNews(aggregate.NormalizeSymbol(args[0]))
            }
            return run(cmd, opts, func(ctx context.Context, a *app.App) (any, error) {
                articles, err := a.News.News(ctx, req)
                return map[string]any{"articles": articles}, err
            })
        },
    })
    root.AddCommand(&cobra.Command{
        Use:   "batch SYMBOLS",
        Short: "Quotes and combined news for a comma-separated list",
        Args:  cobra.ExactArgs(1),
        RunE: func(cmd *cobra.Command, args []string) error {
            return run(cmd, opts, func(ctx context.Context, a *app.App) (any, error) {
                return a.Aggregator.Batch(ctx, args[0])
            })
        },
    })
    return root
}

func run(cmd *cobra.Command, opts *options, fn func(context.Context, *app.App) (any, error)) error {
    cfg, err := config.Load(opts.configPath)
    if err != nil { return err }
    cfg.Log.Level = opts.logLevel
    cfg.Log.Format = "pretty"
    closer, err := logger.Init(cfg.Log, "stocknews-fetch")
    if err != nil { return err }
    defer closer.Close()

    a, err := app.New(cmd.Context(), cfg)
    if err != nil { return err }
    defer a.Close()

    v, err := fn(cmd.Context(), a)
    if err != nil { return err }
    return writeJSON(cmd.OutOrStdout(), v, !opts.compact)
}

func writeJSON(w io.Writer, v any, indent bool) error {
    enc := json.NewEncoder(w)
    enc.SetEscapeHTML(false)
    if indent { enc.SetIndent("", "  ") }
    return enc.Encode(v)
}

func main() {
    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()
    if err := newRootCmd().ExecuteContext(ctx); err != nil {
        fmt.Fprintln(os.Stderr, "fetch:", err)
        stop()
        os.Exit(1)
    }
}
