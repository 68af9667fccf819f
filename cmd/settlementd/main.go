// settlementd is the payment settlement service: it reserves carts as pending
// purchases, initiates payments with the remote gateway, and converts the
// gateway's callbacks and redirects into settled orders, stock reductions,
// and loyalty bonuses.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/smartteam/settlement/internal/api"
	"github.com/smartteam/settlement/internal/config"
	"github.com/smartteam/settlement/internal/gateway"
	"github.com/smartteam/settlement/internal/installment"
	"github.com/smartteam/settlement/internal/loyalty"
	"github.com/smartteam/settlement/internal/order"
	"github.com/smartteam/settlement/internal/server"
	"github.com/smartteam/settlement/internal/settlement"
	"github.com/smartteam/settlement/internal/store"
)

func main() {
	var (
		configPath = flag.String("config", "settlement.yaml", "Path to YAML configuration file")
		port       = flag.Int("port", 0, "HTTP listen port (overrides config)")
		seedFile   = flag.String("seed-file", "", "Path to JSON fixture for initial state")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *verbose {
		cfg.Verbose = true
	}
	if *seedFile != "" {
		cfg.SeedFile = *seedFile
	}

	logger := server.NewLogger(cfg.Verbose)
	memStore := store.New()

	if cfg.SeedFile != "" {
		data, err := os.ReadFile(cfg.SeedFile)
		if err != nil {
			log.Fatalf("reading seed file: %v", err)
		}
		if err := memStore.LoadState(data); err != nil {
			log.Fatalf("loading seed data: %v", err)
		}
		logger.Info("loaded seed data", "file", cfg.SeedFile)
	}

	codec := gateway.NewCodec(cfg.Gateway.PrivateKey)
	gwClient := gateway.NewClient(gateway.Config{
		BaseURL:            cfg.Gateway.BaseURL,
		PublicKey:          cfg.Gateway.PublicKey,
		Currency:           cfg.Gateway.Currency,
		Language:           cfg.Gateway.Language,
		SuccessRedirectURL: cfg.Gateway.SuccessRedirectURL,
		ErrorRedirectURL:   cfg.Gateway.ErrorRedirectURL,
		Timeout:            cfg.Gateway.Timeout.Std(),
	}, codec, logger)

	materializer := order.NewMaterializer(memStore, logger)
	loyaltySvc := loyalty.NewService(memStore, logger)
	installmentSvc := installment.NewService(memStore)

	engine := settlement.NewEngine(settlement.Deps{
		Store:        memStore,
		Gateway:      gwClient,
		Codec:        codec,
		Orders:       materializer,
		Loyalty:      loyaltySvc,
		Installments: installmentSvc,
		Carts:        memStore,
		Stock:        memStore,
		Users:        memStore,
		Logger:       logger,
	}, settlement.Config{
		Currency:           cfg.Gateway.Currency,
		ReservationTTL:     cfg.Reservation.TTL.Std(),
		FrontendSuccessURL: cfg.Frontend.SuccessURL,
		FrontendErrorURL:   cfg.Frontend.ErrorURL,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.RunSweeper(ctx, cfg.Reservation.SweepInterval.Std())

	srv := server.New(cfg.Port, logger)
	handler := api.NewHandler(memStore, engine, materializer, loyaltySvc, installmentSvc, cfg.Identity.JWTSecret, logger)
	handler.Routes(srv.Router)

	logger.Info("settlement service ready",
		"port", cfg.Port,
		"gateway", cfg.Gateway.BaseURL,
		"currency", cfg.Gateway.Currency,
		"reservation_ttl", time.Duration(cfg.Reservation.TTL).String(),
	)

	if err := srv.Serve(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
