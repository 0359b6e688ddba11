// One-shot search CLI: runs a single aggregation against all
// platforms and prints the ranked listings. Needs no database or
// Redis; browser-backed platforms still require a local Playwright
// install.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/harutk/pricehunter/internal/adapters"
	"github.com/harutk/pricehunter/internal/aggregate"
	"github.com/harutk/pricehunter/internal/browser"
	"github.com/harutk/pricehunter/internal/config"
	"github.com/harutk/pricehunter/internal/fx"
	"github.com/harutk/pricehunter/internal/models"
	"github.com/harutk/pricehunter/internal/normalize"
	"github.com/harutk/pricehunter/internal/ratelimit"
	"github.com/harutk/pricehunter/internal/translate"
)

func main() {
	var (
		jan      = flag.String("jan", "", "JAN barcode to search for")
		name     = flag.String("name", "", "product name to search for")
		freeText = flag.String("q", "", "free-text query")
		limit    = flag.Int("limit", models.DefaultLimit, "maximum results")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	spec := models.QuerySpec{
		JANCode:     *jan,
		ProductName: *name,
		FreeText:    *freeText,
		Limit:       *limit,
	}
	if _, err := spec.Resolve(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	browserOpts := browser.DefaultOptions()
	browserOpts.Headless = cfg.Browser.Headless
	b, err := browser.New(browserOpts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to start browser:", err)
		os.Exit(1)
	}
	defer b.Close()

	limiter := ratelimit.New(cfg.Adapters.RateInterval)
	httpClient := &http.Client{Timeout: adapters.APITimeout}

	var translator translate.Translator = translate.Passthrough{}
	if cfg.Adapters.TranslateEndpoint != "" {
		translator = translate.NewClient(cfg.Adapters.TranslateEndpoint, logger)
	}

	// No Redis in the CLI: rates come from the endpoint or the
	// built-in fallback table.
	rates := fx.NewClient(cfg.Adapters.FxEndpoint, nil, logger)
	normalizer := normalize.New(rates, logger)

	ads := []adapters.Adapter{
		adapters.NewYahooShopping(cfg.Adapters.YahooAppID, httpClient, limiter, logger),
		adapters.NewRakuten(cfg.Adapters.RakutenAppID, httpClient, limiter, logger),
		adapters.NewYodobashi(httpClient, limiter, cfg.Adapters.UserAgent, logger),
		adapters.NewEbay(cfg.Adapters.EbayToken, httpClient, limiter, translator, logger),
		adapters.NewMercari(b, limiter, logger),
		adapters.NewPayPay(b, limiter, logger),
		adapters.NewRakuma(b, limiter, logger),
	}

	orchestrator := aggregate.New(ads, normalizer, logger,
		aggregate.WithGlobalTimeout(cfg.Aggregation.GlobalTimeout))

	result, err := orchestrator.Aggregate(context.Background(), spec)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	printResult(result)
}

func printResult(result *models.AggregationResult) {
	fmt.Printf("found %d listings (%d after dedup), showing %d\n\n",
		result.TotalFound, result.AfterDedup, len(result.Items))

	for i, item := range result.Items {
		fmt.Printf("%2d. ¥%-8d [%s] %s\n", i+1, item.TotalPrice, item.Platform, item.Title)
		fmt.Printf("    price ¥%d + shipping ¥%d, %s\n", item.BasePrice, item.ShippingFee, item.Condition)
		fmt.Printf("    %s\n", item.URL)
	}

	if len(result.Errors) > 0 {
		fmt.Println("\nplatform errors:")
		for platform, msg := range result.Errors {
			fmt.Printf("  %-15s %s\n", platform, msg)
		}
	}
}
