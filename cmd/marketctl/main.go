package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"creator-market-sim/internal/client"
	"creator-market-sim/internal/config"
	"creator-market-sim/internal/logger"
	"creator-market-sim/internal/models"
	"creator-market-sim/internal/service"
)

const usage = `usage: marketctl [flags] <command> [args]

commands:
  instruments                         list instruments
  instrument <id>                     show one instrument
  depth <id>                          market depth
  predict <id> [timeframe] [model]    price prediction (defaults 24h HYBRID)
  anomalies <id>                      anomaly detection over the server's trade window
  trades [instrument] [limit]         recent trades
  order <id> <user> <buy|sell> <market|limit> <qty> [price]
  cancel <order-id>                   cancel an order
  connect | disconnect                control the feed
`

func main() {
	configDir := flag.String("config", "./configs", "directory containing config.yml")
	baseURL := flag.String("url", "", "simulator base URL (overrides client.base_url)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage); flag.PrintDefaults() }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.Client.BaseURL = *baseURL
	}

	log, err := logger.NewLogger("marketctl", "warn", cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	c := client.NewClient(&cfg.Client, log)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Client.Timeout*time.Duration(cfg.Client.MaxRetries+1))
	defer cancel()

	result, err := run(ctx, c, flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
}

func run(ctx context.Context, c *client.Client, args []string) (interface{}, error) {
	cmd, args := args[0], args[1:]
	arg := func(i int, def string) string {
		if i < len(args) {
			return args[i]
		}
		return def
	}
	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%s needs %d argument(s)\n%s", cmd, n, usage)
		}
		return nil
	}

	switch cmd {
	case "instruments":
		return c.ListInstruments(ctx)
	case "instrument":
		if err := need(1); err != nil {
			return nil, err
		}
		return c.GetInstrument(ctx, args[0])
	case "depth":
		if err := need(1); err != nil {
			return nil, err
		}
		return c.GetMarketDepth(ctx, args[0])
	case "predict":
		if err := need(1); err != nil {
			return nil, err
		}
		return c.PredictPriceMovement(ctx, args[0], models.Timeframe(arg(1, "24h")), models.ModelType(arg(2, string(models.ModelHybrid))))
	case "anomalies":
		if err := need(1); err != nil {
			return nil, err
		}
		return c.DetectAnomalies(ctx, args[0], nil)
	case "trades":
		limit, err := strconv.Atoi(arg(1, "50"))
		if err != nil {
			return nil, fmt.Errorf("invalid limit: %w", err)
		}
		return c.RecentTrades(ctx, arg(0, ""), limit)
	case "order":
		if err := need(5); err != nil {
			return nil, err
		}
		qty, err := strconv.ParseFloat(args[4], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid quantity: %w", err)
		}
		price, err := strconv.ParseFloat(arg(5, "0"), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid price: %w", err)
		}
		return c.PlaceOrder(ctx, service.PlaceOrderRequest{
			InstrumentID: args[0],
			UserID:       args[1],
			Side:         models.Side(args[2]),
			Kind:         models.OrderKind(args[3]),
			Quantity:     qty,
			Price:        price,
		})
	case "cancel":
		if err := need(1); err != nil {
			return nil, err
		}
		return c.CancelOrder(ctx, args[0])
	case "connect":
		return map[string]string{"status": "connected"}, c.Connect(ctx)
	case "disconnect":
		return map[string]string{"status": "disconnected"}, c.Disconnect(ctx)
	default:
		return nil, fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}
