package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-insights/internal/artifacts"
	"github.com/dvloznov/finance-insights/internal/config"
	infraBQ "github.com/dvloznov/finance-insights/internal/infra/bigquery"
	"github.com/dvloznov/finance-insights/internal/insights"
	"github.com/dvloznov/finance-insights/internal/jobs"
	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/model"
	"github.com/dvloznov/finance-insights/internal/narrative"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "help", "-h", "--help":
		printUsage()
		return
	case "predict", "weekly", "monthly-forecast", "importance", "goals", "anomalies", "daily-check", "emotions", "monthly", "dashboard", "retrain":
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	userID := fs.String("user", "", "User ID (required)")
	days := fs.Int("days", 0, "Window in days (predict: 7, anomalies: 30, emotions: 30)")
	goalID := fs.String("goal", "", "Goal ID (goals: scores every active goal when empty)")
	amount := fs.Float64("amount", 0, "Daily total to check (daily-check)")
	date := fs.String("date", "", "Date as YYYY-MM-DD (daily-check, default today)")
	month := fs.String("month", "", "Month as YYYY-MM (monthly)")
	kind := fs.String("model", "", "Model to retrain: spending, goals or anomaly (retrain, default all)")
	fs.Parse(os.Args[2:])

	if *userID == "" {
		log.Fatal().Msg("Error: -user is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		log.Fatal().Err(err).Msg("Invalid log level")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	log = log.With().Str("user_id", *userID).Logger()
	ctx = logger.WithContext(ctx, log)

	svc, cleanup, err := newService(ctx, cfg, cmd == "dashboard", log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise insights service")
	}
	defer cleanup()

	var out any
	switch cmd {
	case "predict":
		out, err = svc.PredictSpending(ctx, *userID, orDefault(*days, 7))
	case "weekly":
		out, err = svc.PredictWeeklySpending(ctx, *userID)
	case "monthly-forecast":
		out, err = svc.PredictMonthlySpending(ctx, *userID)
	case "importance":
		out, err = svc.SpendingFeatureImportance(ctx, *userID)
	case "goals":
		if *goalID != "" {
			out, err = svc.ScoreGoal(ctx, *userID, *goalID)
		} else {
			out, err = svc.ScoreAllGoals(ctx, *userID)
		}
	case "anomalies":
		out, err = svc.DetectAnomalies(ctx, *userID, orDefault(*days, 30))
	case "daily-check":
		d := civil.DateOf(time.Now())
		if *date != "" {
			if d, err = civil.ParseDate(*date); err != nil {
				log.Fatal().Err(err).Msg("Invalid -date")
			}
		}
		out, err = svc.CheckDailyAnomaly(ctx, *userID, *amount, d)
	case "emotions":
		out, err = svc.AnalyzeEmotions(ctx, *userID, orDefault(*days, 30))
	case "monthly":
		t, perr := time.Parse("2006-01", *month)
		if perr != nil {
			log.Fatal().Err(perr).Msg("Invalid -month, expected YYYY-MM")
		}
		out, err = svc.MonthlyEmotionalReport(ctx, *userID, t.Year(), int(t.Month()))
	case "dashboard":
		out, err = svc.DashboardInsights(ctx, *userID)
	case "retrain":
		kinds := jobs.ModelKinds
		if *kind != "" {
			kinds = []jobs.ModelKind{jobs.ModelKind(*kind)}
		}
		status := map[jobs.ModelKind]model.Status{}
		for _, k := range kinds {
			rerr := svc.Retrain(ctx, *userID, k)
			status[k] = model.StatusFor(rerr)
			if rerr != nil {
				log.Warn().Err(rerr).Str("model", string(k)).Msg("Retraining failed")
			}
		}
		out = status
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", cmd).Msg("Command failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal().Err(err).Msg("Failed to write result")
	}
}

func printUsage() {
	fmt.Println("Finance Insights CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> -user ID [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  predict           Forecast daily spending")
	fmt.Println("  weekly            Forecast next week's total")
	fmt.Println("  monthly-forecast  Forecast the next 30 days by week")
	fmt.Println("  importance        Rank spending forecast features")
	fmt.Println("  goals             Score savings goals")
	fmt.Println("  anomalies         Flag unusual transactions")
	fmt.Println("  daily-check       Compare a daily total with the baseline")
	fmt.Println("  emotions          Analyze emotional spending")
	fmt.Println("  monthly           Monthly emotional spending report")
	fmt.Println("  dashboard         Every insight with alerts")
	fmt.Println("  retrain           Retrain and store models")
	fmt.Println("  help              Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// newService wires the BigQuery repository and the configured artifact
// store. The narrator is only created when narrate is set.
func newService(ctx context.Context, cfg config.Config, narrate bool, log zerolog.Logger) (*insights.Service, func(), error) {
	repo, err := infraBQ.NewRepository(ctx, cfg.BQProject, cfg.BQDataset)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = repo.Close() }

	deps := insights.Deps{History: repo, Recorder: repo}
	switch cfg.ModelStore {
	case config.StoreGCS:
		s, err := artifacts.NewGCSStore(ctx, cfg.GCSBucket, cfg.ModelDir)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		deps.Store = s
		cleanup = func() { _ = s.Close(); _ = repo.Close() }
	default:
		s, err := artifacts.NewFileStore(cfg.ModelDir)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		deps.Store = s
	}

	if narrate && cfg.GeminiModel != "" {
		n, err := narrative.NewGeminiNarrator(ctx, cfg.GeminiModel)
		if err != nil {
			log.Warn().Err(err).Msg("Narrative summary disabled")
		} else {
			deps.Narrator = n
		}
	}

	svcCfg := insights.DefaultConfig(cfg.RandomSeed)
	svcCfg.CacheTTL = cfg.CacheTTL
	return insights.New(svcCfg, deps), cleanup, nil
}
