package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"expansion-evaluator/evaluation"
	"expansion-evaluator/internal/app"
	"expansion-evaluator/internal/config"
	"expansion-evaluator/utils"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	var (
		storeFlag         = flag.String("store", "", "Single store URL to extract products from")
		mainFlag          = flag.String("main", "", "Main store URL (evaluation mode)")
		expansionFlag     = flag.String("expansion", "", "Expansion store URL (evaluation mode)")
		mainTypeFlag      = flag.String("main-type", "d2c", "Main store business type (d2c, b2b)")
		expansionTypeFlag = flag.String("expansion-type", "d2c", "Expansion store business type (d2c, b2b)")
		maxProducts       = flag.Int("max", 0, "Maximum products to extract (default from config)")
		outputFlag        = flag.String("output", "", "Output file path (default: stdout)")
		timeout           = flag.Duration("timeout", 10*time.Minute, "Overall run timeout")
		httpOnly          = flag.Bool("http-only", false, "Use HTTP requests only (disable headless browser)")
		verbose           = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	evaluate := *mainFlag != "" || *expansionFlag != ""
	if *storeFlag == "" && !evaluate {
		log.Fatal("Either --store or --main and --expansion are required")
	}
	if *storeFlag != "" && evaluate {
		log.Fatal("Cannot use --store together with --main/--expansion")
	}
	if evaluate && (*mainFlag == "" || *expansionFlag == "") {
		log.Fatal("Evaluation needs both --main and --expansion")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *httpOnly {
		cfg.UseHeadlessBrowser = false
	}
	if *maxProducts > 0 {
		cfg.Evaluation.MaxProducts = *maxProducts
	}
	// A one-shot run exits before any background retry could finish.
	cfg.Background.Enabled = false

	logger := app.NewLogger(cfg.LogLevel, *verbose)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	services, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialise services: %v", err)
	}
	defer services.Close()

	startTime := time.Now()
	var output any
	if evaluate {
		mainType, err := evaluation.ParseBusinessType(*mainTypeFlag)
		if err != nil {
			logger.Fatal(err)
		}
		expansionType, err := evaluation.ParseBusinessType(*expansionTypeFlag)
		if err != nil {
			logger.Fatal(err)
		}
		report := services.Evaluator.Evaluate(ctx, utils.EnsureScheme(*mainFlag), utils.EnsureScheme(*expansionFlag), mainType, expansionType)
		logger.Infof("Evaluation result: %s", report.Result)
		output = report
	} else {
		result := services.Orchestrator.ExtractProductsFromStore(ctx, utils.EnsureScheme(*storeFlag), cfg.Evaluation.MaxProducts)
		logger.Infof("Total products found: %d (%s)", result.TotalFound, result.ExtractionMethod)
		output = result
	}
	logger.Infof("Completed in %v", time.Since(startTime))

	jsonData, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		logger.Fatalf("Failed to marshal results: %v", err)
	}

	if *outputFlag != "" {
		if err := os.WriteFile(*outputFlag, jsonData, 0644); err != nil {
			logger.Fatalf("Failed to write output file: %v", err)
		}
		logger.Infof("Results written to: %s", *outputFlag)
	} else {
		fmt.Println(string(jsonData))
	}
}
