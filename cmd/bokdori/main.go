// Command bokdori runs the Bokdori care assistant: an interactive chat loop
// with phishing screening and emotion tracking, plus maintenance modes for
// indexing documents, exporting logs and generating weekly reports.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/bokdori-ai/bokdori/assistant"
	"github.com/bokdori-ai/bokdori/config"
	"github.com/bokdori-ai/bokdori/daylog"
	"github.com/bokdori-ai/bokdori/emotion"
	"github.com/bokdori-ai/bokdori/export"
	"github.com/bokdori-ai/bokdori/llm"
	"github.com/bokdori-ai/bokdori/rag"
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	if err := godotenv.Load(cfg.EnvFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, fmt.Errorf("load %s: %w", cfg.EnvFile, err).Error())
		os.Exit(2)
	}

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	appCfg := config.Load(cfg.ConfigPath, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cfg.Mode {
	case "interactive":
		err = runInteractive(ctx, cfg, appCfg, logger)
	case "add-documents":
		err = runAddDocuments(ctx, cfg, appCfg, logger)
	case "export-logs":
		err = runExportLogs(cfg, appCfg, logger)
	case "report":
		err = runReport(appCfg, logger)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "Run mode: interactive, add-documents, export-logs or report")
	fs.StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "Path to the JSON config file")
	fs.StringVar(&cfg.EnvFile, "env", cfg.EnvFile, "Path to a .env file to load before startup")
	fs.StringVar(&cfg.APIKey, "api-key", "", "OpenAI API key (overrides OPENAI_API_KEY env var)")
	fs.StringVar(&cfg.Files, "files", "", "Comma-separated document files to index (add-documents mode)")
	fs.StringVar(&cfg.Directory, "dir", "", "Directory of documents to index recursively (add-documents mode)")
	fs.StringVar(&cfg.LogType, "log-type", "", "Log type to export: emotions, conversations or phishing (export-logs mode)")
	fs.StringVar(&cfg.StartDate, "start", "", "Export period start date, YYYY-MM-DD (export-logs mode)")
	fs.StringVar(&cfg.EndDate, "end", "", "Export period end date, YYYY-MM-DD (export-logs mode)")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "Export format: csv or json (export-logs mode)")
	fs.BoolVar(&cfg.Schedule, "schedule", cfg.Schedule, "Run the weekly report and alert sweep scheduler in interactive mode")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Enable debug logging")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func resolveAPIKey(cfg Config) (string, error) {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		return "", errors.New("missing OPENAI_API_KEY (or pass -api-key)")
	}
	return key, nil
}

// buildAssistant wires the LLM client, knowledge base and assistant for the
// modes that talk to the model.
func buildAssistant(cfg Config, appCfg config.Config, logger *zap.Logger) (*assistant.Assistant, error) {
	apiKey, err := resolveAPIKey(cfg)
	if err != nil {
		return nil, err
	}

	client, err := llm.NewClient(llm.Config{
		APIKey:          apiKey,
		Model:           appCfg.LLM.ModelName,
		EmbeddingModel:  appCfg.LLM.EmbeddingModel,
		Temperature:     appCfg.LLM.Temperature,
		MaxOutputTokens: appCfg.LLM.MaxOutputTokens,
	}, logger)
	if err != nil {
		return nil, err
	}

	knowledge, err := rag.NewStore(appCfg.Paths.IndexPath, client, logger)
	if err != nil {
		return nil, err
	}

	return assistant.New(appCfg, client, knowledge, client, logger)
}

func runInteractive(ctx context.Context, cfg Config, appCfg config.Config, logger *zap.Logger) error {
	bokdori, err := buildAssistant(cfg, appCfg, logger)
	if err != nil {
		return err
	}

	if cfg.Schedule {
		scheduler, err := assistant.NewScheduler(bokdori, logger)
		if err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("복도리 AI 비서 - 대화형 모드")
	fmt.Println("종료하려면 'exit' 또는 'quit'를 입력하세요.")
	fmt.Println(strings.Repeat("=", 50))

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("\n사용자 > ")
		if !scanner.Scan() {
			fmt.Println("\n복도리 AI 비서를 종료합니다.")
			return scanner.Err()
		}
		if ctx.Err() != nil {
			fmt.Println("\n복도리 AI 비서를 종료합니다.")
			return nil
		}

		input := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(input) {
		case "exit", "quit", "종료":
			fmt.Println("복도리 AI 비서를 종료합니다.")
			return nil
		case "reset":
			fmt.Println("복도리 > " + bokdori.ResetConversation())
			continue
		case "report":
			reports := bokdori.GenerateWeeklyReports()
			fmt.Println("복도리 > 주간 보고서가 생성되었습니다:")
			for kind, path := range reports {
				fmt.Printf("  - %s: %s\n", kind, path)
			}
			continue
		case "":
			continue
		}

		fmt.Println("복도리 > " + bokdori.ProcessMessage(ctx, input))
	}
}

func runAddDocuments(ctx context.Context, cfg Config, appCfg config.Config, logger *zap.Logger) error {
	bokdori, err := buildAssistant(cfg, appCfg, logger)
	if err != nil {
		return err
	}

	var files []string
	for _, f := range strings.Split(cfg.Files, ",") {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}

	added, err := bokdori.AddDocuments(ctx, files, cfg.Directory)
	if err != nil {
		return err
	}
	fmt.Printf("%d개 청크가 지식 베이스에 추가되었습니다.\n", added)
	return nil
}

func runExportLogs(cfg Config, appCfg config.Config, logger *zap.Logger) error {
	exporter, err := export.NewExporter(appCfg.Paths.LogsDir, appCfg.Paths.ExportDir, logger)
	if err != nil {
		return err
	}

	var path string
	if cfg.Format == "json" {
		path, err = exporter.ExportJSON(export.LogType(cfg.LogType), cfg.StartDate, cfg.EndDate)
	} else {
		path, err = exporter.ExportCSV(export.LogType(cfg.LogType), cfg.StartDate, cfg.EndDate)
	}
	if err != nil {
		return err
	}
	fmt.Printf("로그 내보내기 완료: %s\n", path)
	return nil
}

func runReport(appCfg config.Config, logger *zap.Logger) error {
	risk := emotion.RiskConfig{
		Threshold: appCfg.Emotion.RiskThreshold,
		Days:      appCfg.Emotion.RiskDays,
	}
	monitor, err := emotion.NewTrendMonitor(appCfg.EmotionLogsDir(), appCfg.Paths.ReportsDir, risk, logger)
	if err != nil {
		return err
	}
	path, err := monitor.SaveWeeklyReport(nil)
	if err != nil {
		return err
	}
	fmt.Printf("감정 보고서 생성 완료: %s\n", path)

	exporter, err := export.NewExporter(appCfg.Paths.LogsDir, appCfg.Paths.ExportDir, logger)
	if err != nil {
		return err
	}
	end := monitor.Now()
	start := end.AddDate(0, 0, -7)
	convPath, err := exporter.GenerateConversationReport(
		start.Format(daylog.DateFormat), end.Format(daylog.DateFormat))
	if err != nil {
		// A week without conversations still gets the emotion report.
		logger.Warn("conversation report skipped", zap.Error(err))
		return nil
	}
	fmt.Printf("대화 보고서 생성 완료: %s\n", convPath)
	return nil
}
