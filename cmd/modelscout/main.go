package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/everstacklabs/modelscout/internal/cache"
	"github.com/everstacklabs/modelscout/internal/catalog"
	"github.com/everstacklabs/modelscout/internal/config"
	"github.com/everstacklabs/modelscout/internal/enrich"
	"github.com/everstacklabs/modelscout/internal/errs"
	"github.com/everstacklabs/modelscout/internal/pipeline"
	"github.com/everstacklabs/modelscout/internal/recommend"
)

var (
	cfgFile string
	noCache bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "modelscout",
		Short:         "Find the right AI model for a task",
		Long:          "Aggregates model catalogs from OpenRouter, Replicate and Hugging Face and recommends the cheapest, balanced, and best model for a task.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "bypass the catalog cache")

	rootCmd.AddCommand(
		recommendCmd(),
		modelsCmd(),
		cacheCmd(),
	)

	// Recommend is the default: "modelscout generate alt text for images"
	// behaves like "modelscout recommend ...".
	rootCmd.Args = cobra.ArbitraryArgs
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return recommendCmd().RunE(cmd, args)
	}
	addRecommendFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(errs.ExitCodeFor(err))
	}
}

func printError(err error) {
	var e *errs.Error
	if errors.As(err, &e) {
		fmt.Fprintf(os.Stderr, "error: %s\n", e.Error())
		if e.Hint != "" {
			fmt.Fprintf(os.Stderr, "hint: %s\n", e.Hint)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "error: %s\n", err)
}

func addRecommendFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("max-price", 0, "maximum primary price in USD")
	cmd.Flags().Int("min-context", 0, "minimum context length in tokens")
	cmd.Flags().Int("min-resolution", 0, "minimum output resolution in pixels")
	cmd.Flags().String("modality", "", "force a modality (text, image, video, audio-tts, audio-stt, audio-generation, vision, embedding, multimodal)")
	cmd.Flags().StringSlice("exclude", nil, "exclude models whose ID or name contains a pattern")
	cmd.Flags().StringSlice("sources", nil, "restrict to these sources")
	cmd.Flags().Bool("json", false, "print the recommendation as JSON")
}

func constraintsFromFlags(cmd *cobra.Command) (recommend.Constraints, error) {
	var cons recommend.Constraints
	cons.MaxPrice, _ = cmd.Flags().GetFloat64("max-price")
	cons.MinContext, _ = cmd.Flags().GetInt("min-context")
	cons.MinResolution, _ = cmd.Flags().GetInt("min-resolution")
	cons.Exclude, _ = cmd.Flags().GetStringSlice("exclude")
	cons.Sources, _ = cmd.Flags().GetStringSlice("sources")

	modality, _ := cmd.Flags().GetString("modality")
	if modality != "" {
		m := catalog.Modality(modality)
		valid := false
		for _, known := range catalog.AllModalities() {
			if m == known {
				valid = true
				break
			}
		}
		if !valid {
			return cons, fmt.Errorf("unknown modality %q", modality)
		}
		cons.Modality = m
	}
	return cons, nil
}

func recommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend [task description]",
		Short: "Recommend cheapest/balanced/best models for a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cons, err := constraintsFromFlags(cmd)
			if err != nil {
				return err
			}

			task := strings.Join(args, " ")
			p := pipeline.New(cfg)
			rec, err := p.Recommend(cmd.Context(), task, cons)
			if err != nil {
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(rec)
			}
			renderRecommendation(rec)
			return nil
		},
	}
	addRecommendFlags(cmd)
	return cmd
}

func modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Fetch and list the merged model catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cons, err := constraintsFromFlags(cmd)
			if err != nil {
				return err
			}

			p := pipeline.New(cfg)
			entries, err := p.FetchCatalog(cmd.Context())
			if err != nil {
				return err
			}
			entries = cons.Filter(entries)

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(entries)
			}
			renderModels(entries)
			return nil
		},
	}
	addRecommendFlags(cmd)
	return cmd
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the catalog cache",
	}
	cmd.AddCommand(cacheStatusCmd(), cacheClearCmd())
	return cmd
}

func cacheStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show per-source cache freshness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := cache.New(cfg.CacheDir, cfg.CacheTTLDuration())
			if err != nil {
				return err
			}
			statuses, err := store.Statuses()
			if err != nil {
				return err
			}
			if len(statuses) == 0 {
				fmt.Println("catalog cache is empty")
			} else {
				fmt.Printf("%-16s %-8s %-12s %s\n", "SOURCE", "STATE", "AGE", "TTL")
				for _, s := range statuses {
					state := "fresh"
					if !s.Valid {
						state = "expired"
					}
					fmt.Printf("%-16s %-8s %-12s %s\n",
						s.Source, state, s.Age.Truncate(time.Second), s.TTL)
				}
			}

			prices := enrich.OpenStore(
				filepath.Join(cache.Dir(cfg.CacheDir), "prices.json"),
				cfg.EnrichTTL(), cfg.EnrichMaxStale(), cfg.Enrich.MaxEntries)
			if prices.Len() > 0 {
				byState := prices.CountByState()
				fmt.Printf("\nprice cache: %d entries (%d fresh, %d stale, %d expired)\n",
					prices.Len(), byState[enrich.StateFresh],
					byState[enrich.StateStale], byState[enrich.StateExpired])
			}
			return nil
		},
	}
}

func cacheClearCmd() *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached catalog snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := cache.New(cfg.CacheDir, cfg.CacheTTLDuration())
			if err != nil {
				return err
			}
			if source != "" {
				if err := store.Invalidate(source); err != nil {
					return err
				}
				fmt.Printf("cache cleared for %s\n", source)
				return nil
			}
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Println("cache cleared")
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "clear only this source's snapshot")
	return cmd
}

func renderRecommendation(rec *recommend.Recommendation) {
	fmt.Printf("Task: %s\n", rec.Analysis.Summary)
	fmt.Printf("Modality: %s (%s)\n\n", rec.Analysis.Modality, rec.Method)

	tiers := []struct {
		label string
		pick  recommend.Pick
	}{
		{"Cheapest", rec.Cheapest},
		{"Balanced", rec.Balanced},
		{"Best", rec.Best},
	}
	for _, t := range tiers {
		fmt.Printf("%s: %s\n", t.label, t.pick.ID)
		fmt.Printf("  %s\n", t.pick.Reason)
		fmt.Printf("  pricing: %s", t.pick.PricingSummary)
		if t.pick.EstimatedCost != "" {
			fmt.Printf("  (%s)", t.pick.EstimatedCost)
		}
		fmt.Println()
		fmt.Println()
	}

	if rec.Analysis.Reasoning != "" {
		fmt.Printf("Reasoning: %s\n", rec.Analysis.Reasoning)
	}
}

func renderModels(entries []catalog.Entry) {
	fmt.Printf("%-48s %-16s %-10s %s\n", "MODEL", "MODALITY", "CONTEXT", "PRICE")
	for _, e := range entries {
		ctxLen := "-"
		if e.ContextLength > 0 {
			ctxLen = fmt.Sprintf("%d", e.ContextLength)
		}
		price := "-"
		if p := catalog.PrimaryPrice(&e); p > 0 && !math.IsInf(p, 1) {
			price = fmt.Sprintf("$%g", p)
		}
		fmt.Printf("%-48s %-16s %-10s %s\n", e.ID, e.Modality, ctxLen, price)
	}
	fmt.Printf("\nTotal: %d models\n", len(entries))
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if noCache {
		cfg.NoCache = true
	}
	setupLogging(cfg.LogLevel)
	return cfg, nil
}

func setupLogging(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}
