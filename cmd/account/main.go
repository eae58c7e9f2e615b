package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"

	"laceworkct/internal/account"
	"laceworkct/internal/config"
	"laceworkct/pkg/awsx"
	"laceworkct/pkg/honeycomb"
	"laceworkct/pkg/logging"
	"laceworkct/pkg/telemetry"
)

func main() {
	if err := run("account"); err != nil {
		log.New(os.Stderr, "", log.LstdFlags).Fatal(err)
	}
}

func run(serviceName string) error {
	ctx := context.Background()
	logger := logging.New(serviceName)

	shutdownTelemetry, err := telemetry.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	clients, err := awsx.NewClientsFromEnv(ctx)
	if err != nil {
		return fmt.Errorf("create aws clients: %w", err)
	}

	resolver, err := account.NewCredentialResolver(clients.SecretsManager, cfg.APICredentialsSecret)
	if err != nil {
		return fmt.Errorf("create credential resolver: %w", err)
	}

	locator, err := account.NewInstanceLocator(clients.CloudFormation)
	if err != nil {
		return fmt.Errorf("create instance locator: %w", err)
	}

	orch, err := account.NewOrchestrator(clients.CloudFormation, clients.SNS, resolver, cfg.AccountSNSTopic, logger)
	if err != nil {
		return fmt.Errorf("create orchestrator: %w", err)
	}

	dispatcher, err := account.NewDispatcher(orch, locator, honeycomb.NewClient(logger), cfg, logger)
	if err != nil {
		return fmt.Errorf("create dispatcher: %w", err)
	}

	// Counters are scraped out-of-band (telemetry extension or local dev);
	// the listener is opt-in since a plain Lambda has no ingress.
	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", account.MetricsHandler())
		go func() {
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Printf("[ERROR] metrics listener: %v", err)
			}
		}()
	}

	lambda.StartWithOptions(dispatcher.Handle, lambda.WithEnableSIGTERM(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "%s: telemetry shutdown error: %v\n", serviceName, err)
		}
	}))

	return nil
}
