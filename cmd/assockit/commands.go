package main

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/rushteam/assockit/config"
	"github.com/rushteam/assockit/core"
	"github.com/rushteam/assockit/engine"
	"github.com/rushteam/assockit/pkg/logging"
	"github.com/rushteam/assockit/store"
)

var version = "dev"

var (
	configPath    string
	inputPath     string
	withID        bool
	minSupport    float64
	metric        string
	minThreshold  float64
	workers       int
	topN          int
	minConfidence float64
	items         string
	item          string
	pipelinePath  string

	appConfig *config.AppConfig

	rootCmd = &cobra.Command{
		Use:           "assockit",
		Short:         "Mine frequent itemsets and association rules from basket data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadAppConfig(configPath)
			if err != nil {
				return err
			}
			logCfg := logging.DefaultConfig()
			logCfg.Level = cfg.Log.Level
			logCfg.Format = cfg.Log.Format
			logging.Init(logCfg)
			appConfig = cfg
			return nil
		},
	}

	mineCmd = &cobra.Command{
		Use:   "mine",
		Short: "Mine itemsets and rules, print them with summary statistics",
		RunE:  runMine,
	}

	recommendCmd = &cobra.Command{
		Use:   "recommend",
		Short: "Recommend items for a basket",
		RunE:  runRecommend,
	}

	togetherCmd = &cobra.Command{
		Use:   "together",
		Short: "List items frequently bought together with one item",
		RunE:  runTogether,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildVersion())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $ASSOCKIT_CONFIG or ./assockit.yaml)")

	for _, c := range []*cobra.Command{mineCmd, recommendCmd, togetherCmd} {
		c.Flags().StringVar(&inputPath, "input", "", "CSV file, one basket per line; restores the stored snapshot when empty")
		c.Flags().BoolVar(&withID, "with-id", false, "first CSV column is the transaction id")
		c.Flags().Float64Var(&minSupport, "min-support", 0, "minimum support in (0, 1] (default from config)")
		c.Flags().StringVar(&metric, "metric", "", "rule metric: confidence, lift, leverage or conviction (default from config)")
		c.Flags().Float64Var(&minThreshold, "min-threshold", -1, "minimum metric value (default from config)")
		c.Flags().IntVar(&workers, "workers", -1, "mining workers, 0 means GOMAXPROCS (default from config)")
		c.Flags().IntVar(&topN, "top", -1, "maximum results, 0 means no cap (default from config)")
	}
	mineCmd.MarkFlagRequired("input")
	recommendCmd.Flags().StringVar(&items, "items", "", "comma separated basket")
	recommendCmd.Flags().Float64Var(&minConfidence, "min-confidence", -1, "minimum rule confidence (default from config)")
	recommendCmd.Flags().StringVar(&pipelinePath, "pipeline", "", "YAML pipeline (recall / filter / rerank nodes) to run instead of plain matching")
	recommendCmd.MarkFlagRequired("items")
	togetherCmd.Flags().StringVar(&item, "item", "", "anchor item")
	togetherCmd.MarkFlagRequired("item")

	rootCmd.AddCommand(mineCmd, recommendCmd, togetherCmd, versionCmd)
}

// applyFlags 让显式设置的 flag 覆盖配置文件中的值。
func applyFlags(cmd *cobra.Command, cfg *config.AppConfig) error {
	f := cmd.Flags()
	if f.Changed("min-support") {
		cfg.Mining.MinSupport = minSupport
	}
	if f.Changed("workers") {
		cfg.Mining.Workers = workers
	}
	if f.Changed("metric") {
		cfg.Rules.Metric = metric
	}
	if f.Changed("min-threshold") {
		cfg.Rules.MinThreshold = minThreshold
	}
	if f.Changed("top") {
		cfg.Recommend.TopN = topN
	}
	if f.Changed("min-confidence") {
		cfg.Recommend.MinConfidence = minConfidence
	}
	return cfg.Validate()
}

// session 是一次命令执行所用的引擎与生效配置。
type session struct {
	engine *engine.Engine
	cfg    config.AppConfig
	store  core.Store
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		l := logging.Logger()
		l.Warn().Err(err).Str("store", s.store.Name()).Msg("close store")
	}
}

// openSession 有 --input 时重新挖掘并持久化，否则从存储恢复快照。
func openSession(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfg := *appConfig
	if err := applyFlags(cmd, &cfg); err != nil {
		return nil, err
	}
	st, err := store.Open(store.Options{
		Backend:        cfg.Store.Backend,
		RedisAddr:      cfg.Store.RedisAddr,
		RedisDB:        cfg.Store.RedisDB,
		BadgerPath:     cfg.Store.BadgerPath,
		BadgerInMemory: cfg.Store.BadgerInMemory,
	})
	if err != nil {
		return nil, err
	}
	s := &session{
		cfg:   cfg,
		store: st,
		engine: engine.New(
			engine.WithLogger(logging.Logger()),
			engine.WithStore(st, cfg.Store.Key),
			engine.WithWorkers(cfg.Mining.Workers),
		),
	}

	if inputPath == "" {
		if _, err := s.engine.Restore(ctx); err != nil {
			s.Close()
			if core.IsStoreNotFound(err) {
				return nil, fmt.Errorf("no stored snapshot in %s backend, run mine with --input first: %w", st.Name(), err)
			}
			return nil, err
		}
		return s, nil
	}

	m, err := loadMatrix(inputPath, withID)
	if err != nil {
		s.Close()
		return nil, err
	}
	if _, err := s.engine.Analyze(ctx, m, engine.Params{
		MinSupport:   cfg.Mining.MinSupport,
		Metric:       cfg.Rules.Metric,
		MinThreshold: cfg.Rules.MinThreshold,
	}); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

type mineOutput struct {
	Snapshot string               `json:"snapshot"`
	Itemsets []engine.ItemsetView `json:"itemsets"`
	Rules    []engine.RuleView    `json:"rules"`
	Stats    engine.Stats         `json:"stats"`
}

func runMine(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	snap := s.engine.Snapshot()
	n := s.cfg.Recommend.TopN
	return writeJSON(cmd.OutOrStdout(), mineOutput{
		Snapshot: snap.ID,
		Itemsets: s.engine.TopItemsets(n, 1),
		Rules:    s.engine.TopRules(n, 0),
		Stats:    snap.Stats,
	})
}

func runRecommend(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	rc := s.cfg.Recommend
	if pipelinePath != "" {
		params := map[string]any{}
		if cmd.Flags().Changed("top") {
			params["top_n"] = rc.TopN
		}
		if cmd.Flags().Changed("min-confidence") {
			params["min_confidence"] = rc.MinConfidence
		}
		out, err := runPipeline(cmd.Context(), s.engine, s.store, pipelinePath, splitItems(items), params)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), out)
	}
	return writeJSON(cmd.OutOrStdout(), s.engine.Recommend(splitItems(items), rc.TopN, rc.MinConfidence))
}

func runTogether(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	return writeJSON(cmd.OutOrStdout(), s.engine.FrequentlyBoughtTogether(item, s.cfg.Recommend.TopN))
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func buildVersion() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return version
}
