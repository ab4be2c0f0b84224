// Package assistant wires the emotion, phishing, RAG and export components
// into the conversational core of the Bokdori care assistant.
package assistant

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bokdori-ai/bokdori/config"
	"github.com/bokdori-ai/bokdori/daylog"
	"github.com/bokdori-ai/bokdori/emotion"
	"github.com/bokdori-ai/bokdori/export"
	"github.com/bokdori-ai/bokdori/llm"
	"github.com/bokdori-ai/bokdori/phishing"
	"github.com/bokdori-ai/bokdori/rag"
)

// ChatModel produces assistant replies for a conversation.
type ChatModel interface {
	Chat(ctx context.Context, instructions string, msgs []llm.Message) (string, error)
}

// KnowledgeBase is the document index backing grounded answers.
// rag.Store satisfies it.
type KnowledgeBase interface {
	Search(ctx context.Context, query string, k int) ([]rag.SearchResult, error)
	AddDocuments(ctx context.Context, docs []rag.Document, chunkSize, overlap int) (int, error)
	Count() int
	Clear() error
}

// Canned user-facing responses.
const (
	emptyMessageResponse = "메시지가 비어있습니다. 질문이나 대화를 입력해주세요."
	chatFailureResponse  = "죄송합니다. 메시지를 처리하는 중에 오류가 발생했습니다. 잠시 후 다시 시도해주세요."
	resetDoneResponse    = "대화 기록이 초기화되었습니다."
	concernTail          = "\n\n혹시 무슨 일이 있으신가요? 도움이 필요하시면 말씀해주세요."
)

// historyWindow caps how many past turns are sent to the model.
const historyWindow = 20

// alertCheckEvery triggers an alert sweep after this many history entries.
const alertCheckEvery = 10

// Assistant handles user messages end to end: phishing screening, emotion
// classification and logging, grounded or plain chat, and periodic alerts.
type Assistant struct {
	cfg       config.Config
	chat      ChatModel
	knowledge KnowledgeBase
	detector  *phishing.Detector
	analyzer  *emotion.Analyzer
	monitor   *emotion.TrendMonitor
	alerts    *emotion.AlertManager
	exporter  *export.Exporter

	convLogs     *daylog.Store
	emotionLogs  *daylog.Store
	phishingLogs *daylog.Store

	history []llm.Message
	log     *zap.Logger

	Now func() time.Time
}

// New builds an assistant from cfg. knowledge and judge may be nil: without
// a knowledge base every answer uses plain chat, and without a judge
// phishing screening is pattern-only.
func New(cfg config.Config, chat ChatModel, knowledge KnowledgeBase, judge phishing.Judge, logger *zap.Logger) (*Assistant, error) {
	if chat == nil {
		return nil, fmt.Errorf("assistant.New: chat model is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	risk := emotion.RiskConfig{
		Threshold: cfg.Emotion.RiskThreshold,
		Days:      cfg.Emotion.RiskDays,
	}
	monitor, err := emotion.NewTrendMonitor(cfg.EmotionLogsDir(), cfg.Paths.ReportsDir, risk, logger)
	if err != nil {
		return nil, fmt.Errorf("assistant.New: %w", err)
	}
	alerts, err := emotion.NewAlertManager(cfg.Paths.AlertsDir, monitor, risk, logger)
	if err != nil {
		return nil, fmt.Errorf("assistant.New: %w", err)
	}
	exporter, err := export.NewExporter(cfg.Paths.LogsDir, cfg.Paths.ExportDir, logger)
	if err != nil {
		return nil, fmt.Errorf("assistant.New: %w", err)
	}
	convLogs, err := daylog.NewStore(cfg.ConversationLogsDir(), "_conversation_log.json", logger)
	if err != nil {
		return nil, fmt.Errorf("assistant.New: %w", err)
	}
	emotionLogs, err := daylog.NewStore(cfg.EmotionLogsDir(), emotion.LogFileSuffix, logger)
	if err != nil {
		return nil, fmt.Errorf("assistant.New: %w", err)
	}
	phishingLogs, err := daylog.NewStore(cfg.PhishingLogsDir(), "_phishing_log.json", logger)
	if err != nil {
		return nil, fmt.Errorf("assistant.New: %w", err)
	}

	detector := phishing.NewDetector(
		phishing.LoadPatterns(cfg.Phishing.PatternsPath, logger),
		cfg.Phishing.Threshold, judge, logger)
	analyzer := emotion.NewAnalyzer(
		emotion.LoadPatterns(cfg.Emotion.PatternsPath, logger), logger)

	logger.Info("assistant initialized",
		zap.Bool("knowledge_base", knowledge != nil),
		zap.Bool("phishing_judge", judge != nil))

	return &Assistant{
		cfg:          cfg,
		chat:         chat,
		knowledge:    knowledge,
		detector:     detector,
		analyzer:     analyzer,
		monitor:      monitor,
		alerts:       alerts,
		exporter:     exporter,
		convLogs:     convLogs,
		emotionLogs:  emotionLogs,
		phishingLogs: phishingLogs,
		log:          logger,
		Now:          time.Now,
	}, nil
}

type phishingRecord struct {
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`
	phishing.Assessment
}

type conversationRecord struct {
	Timestamp        string   `json:"timestamp"`
	UserInput        string   `json:"user_input"`
	Response         string   `json:"response"`
	Emotion          string   `json:"emotion,omitempty"`
	EmotionCategory  string   `json:"emotion_category,omitempty"`
	Keywords         []string `json:"keywords,omitempty"`
	UsedRAG          bool     `json:"used_rag"`
	PhishingDetected bool     `json:"phishing_detected"`
	RiskLevel        string   `json:"risk_level,omitempty"`
}

// ProcessMessage screens, classifies, logs and answers one user message.
// Chat failures produce an apology response rather than an error so the
// conversation loop keeps going.
func (a *Assistant) ProcessMessage(ctx context.Context, userInput string) string {
	userInput = strings.TrimSpace(userInput)
	if userInput == "" {
		return emptyMessageResponse
	}
	now := a.Now()
	a.history = append(a.history, llm.Message{Role: llm.RoleUser, Content: userInput})

	assessment := a.detector.Detect(ctx, userInput)
	a.appendLog(a.phishingLogs, now, phishingRecord{
		Timestamp:  now.Format(time.RFC3339),
		Text:       userInput,
		Assessment: assessment,
	})

	analysis := a.analyzer.AnalyzeText(userInput)
	entry := a.analyzer.ClassifyTurn(userInput, now)
	a.appendLog(a.emotionLogs, now, entry)

	if assessment.IsPhishing &&
		(assessment.RiskLevel == phishing.RiskHigh || assessment.RiskLevel == phishing.RiskMedium) {
		warning := fmt.Sprintf(
			"⚠️ 주의: 이 대화에서 보이스피싱 의심 징후가 감지되었습니다! (%.2f점)\n\n%s\n\n"+
				"개인정보나 금융정보를 제공하지 마시고, 의심스러운 요청은 해당 기관에 직접 문의하세요.",
			assessment.Score, assessment.Explanation)
		a.log.Warn("suspected voice phishing",
			zap.Float64("score", assessment.Score),
			zap.String("risk_level", assessment.RiskLevel))
		a.finishTurn(now, userInput, warning, entry, analysis, false, assessment)
		return warning
	}

	response, usedRAG, err := a.answer(ctx, userInput)
	if err != nil {
		a.log.Error("chat failed", zap.Error(err))
		a.finishTurn(now, userInput, chatFailureResponse, entry, analysis, usedRAG, assessment)
		return chatFailureResponse
	}

	if entry.EmotionCategory == emotion.CategoryNegative && analysis.Confidence > 0.7 {
		response += concernTail
	}

	a.finishTurn(now, userInput, response, entry, analysis, usedRAG, assessment)
	return response
}

// answer picks grounded or plain chat depending on the knowledge base.
func (a *Assistant) answer(ctx context.Context, userInput string) (string, bool, error) {
	msgs := a.history
	if len(msgs) > historyWindow {
		msgs = msgs[len(msgs)-historyWindow:]
	}

	if a.knowledge == nil || a.knowledge.Count() == 0 {
		reply, err := a.chat.Chat(ctx, llm.ConversationInstructions, msgs)
		return reply, false, err
	}

	hits, err := a.knowledge.Search(ctx, userInput, a.cfg.RAG.TopK)
	if err != nil {
		a.log.Warn("knowledge base search failed, answering without context", zap.Error(err))
		reply, cerr := a.chat.Chat(ctx, llm.ConversationInstructions, msgs)
		return reply, false, cerr
	}
	if len(hits) == 0 {
		reply, cerr := a.chat.Chat(ctx, llm.ConversationInstructions, msgs)
		return reply, false, cerr
	}

	var passages strings.Builder
	for _, hit := range hits {
		passages.WriteString(hit.Content)
		passages.WriteString("\n\n")
	}
	instructions := llm.RAGInstructions + "\n\n" + strings.TrimSpace(passages.String())

	reply, err := a.chat.Chat(ctx, instructions, msgs)
	if err != nil {
		return "", true, err
	}

	if a.cfg.ShowSources {
		reply += "\n\n출처:"
		for i, hit := range hits {
			if i >= 3 {
				break
			}
			reply += fmt.Sprintf("\n%d. %s", i+1, filepath.Base(hit.Source))
		}
	}
	return reply, true, nil
}

// finishTurn logs the exchange, extends the history and sweeps alerts on
// every tenth history entry.
func (a *Assistant) finishTurn(now time.Time, userInput, response string, entry emotion.LogEntry, analysis emotion.Analysis, usedRAG bool, assessment phishing.Assessment) {
	a.appendLog(a.convLogs, now, conversationRecord{
		Timestamp:        now.Format(time.RFC3339),
		UserInput:        userInput,
		Response:         response,
		Emotion:          analysis.DominantEmotion,
		EmotionCategory:  entry.EmotionCategory,
		Keywords:         entry.Keywords,
		UsedRAG:          usedRAG,
		PhishingDetected: assessment.IsPhishing,
		RiskLevel:        assessment.RiskLevel,
	})

	a.history = append(a.history, llm.Message{Role: llm.RoleAssistant, Content: response})

	if len(a.history)%alertCheckEvery == 0 {
		a.CheckAlerts()
	}
}

func (a *Assistant) appendLog(store *daylog.Store, date time.Time, record any) {
	if err := store.Append(date, record); err != nil {
		a.log.Error("failed to append log record", zap.Error(err))
	}
}

// CheckAlerts runs every alert check and logs what fired.
func (a *Assistant) CheckAlerts() []emotion.Alert {
	fired, err := a.alerts.CheckAll()
	if err != nil {
		a.log.Error("alert sweep failed", zap.Error(err))
	}
	for _, alert := range fired {
		a.log.Info("alert raised",
			zap.String("type", alert.Type), zap.String("severity", alert.Severity))
	}
	return fired
}

// AddDocuments loads the given files and directory into the knowledge base
// and returns the number of chunks indexed.
func (a *Assistant) AddDocuments(ctx context.Context, filePaths []string, directory string) (int, error) {
	if a.knowledge == nil {
		return 0, fmt.Errorf("AddDocuments: no knowledge base configured")
	}

	var docs []rag.Document
	for _, path := range filePaths {
		doc, err := rag.LoadDocument(path)
		if err != nil {
			a.log.Warn("skipping document", zap.String("path", path), zap.Error(err))
			continue
		}
		docs = append(docs, doc)
	}
	if directory != "" {
		dirDocs, err := rag.LoadDirectory(directory, a.log)
		if err != nil {
			a.log.Warn("directory load failed", zap.String("dir", directory), zap.Error(err))
		} else {
			docs = append(docs, dirDocs...)
		}
	}
	if len(docs) == 0 {
		return 0, fmt.Errorf("AddDocuments: nothing to add")
	}

	added, err := a.knowledge.AddDocuments(ctx, docs, a.cfg.RAG.ChunkSize, a.cfg.RAG.ChunkOverlap)
	if err != nil {
		return 0, fmt.Errorf("AddDocuments: %w", err)
	}
	return added, nil
}

// ResetConversation drops the in-memory history.
func (a *Assistant) ResetConversation() string {
	a.log.Info("conversation history reset", zap.Int("messages", len(a.history)))
	a.history = nil
	return resetDoneResponse
}

// History returns the conversation so far.
func (a *Assistant) History() []llm.Message {
	return a.history
}

// GenerateWeeklyReports writes the weekly emotion report and the weekly
// conversation report, returning the paths that were produced.
func (a *Assistant) GenerateWeeklyReports() map[string]string {
	reports := make(map[string]string)

	if path, err := a.monitor.SaveWeeklyReport(nil); err != nil {
		a.log.Error("emotion report failed", zap.Error(err))
	} else {
		reports["emotion"] = path
	}

	end := a.Now()
	start := end.AddDate(0, 0, -7)
	path, err := a.exporter.GenerateConversationReport(
		start.Format(daylog.DateFormat), end.Format(daylog.DateFormat))
	if err != nil {
		a.log.Error("conversation report failed", zap.Error(err))
	} else {
		reports["conversation"] = path
	}

	return reports
}

// ExportLogs writes the logs of a period in the requested format, either
// "csv" or "json".
func (a *Assistant) ExportLogs(logType export.LogType, startDate, endDate, format string) (string, error) {
	switch strings.ToLower(format) {
	case "csv", "":
		return a.exporter.ExportCSV(logType, startDate, endDate)
	case "json":
		return a.exporter.ExportJSON(logType, startDate, endDate)
	default:
		return "", fmt.Errorf("ExportLogs: unsupported format %q", format)
	}
}

// ClearKnowledgeBase drops every indexed document.
func (a *Assistant) ClearKnowledgeBase() error {
	if a.knowledge == nil {
		return fmt.Errorf("ClearKnowledgeBase: no knowledge base configured")
	}
	a.log.Warn("clearing knowledge base")
	return a.knowledge.Clear()
}
