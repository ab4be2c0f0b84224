package emotion

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/bokdori-ai/bokdori/daylog"
	"github.com/bokdori-ai/bokdori/fileutils"
)

// AlertFileSuffix is the per-day alert log file name tail.
const AlertFileSuffix = "_alerts.json"

const (
	AlertTypeDepression    = "depression"
	AlertTypeEmotionChange = "emotion_change"
)

// Alert is a persisted notification record consumed by the downstream
// alert dispatcher.
type Alert struct {
	Type      string         `json:"type"`
	Timestamp string         `json:"timestamp"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

// AlertManager derives alerts from the trend monitor's aggregates and
// persists them to per-day alert files, deduplicating recent repeats.
type AlertManager struct {
	store   *daylog.Store
	monitor *TrendMonitor
	risk    RiskConfig
	log     *zap.Logger

	Now func() time.Time
}

func NewAlertManager(alertsDir string, monitor *TrendMonitor, risk RiskConfig, logger *zap.Logger) (*AlertManager, error) {
	if monitor == nil {
		return nil, fmt.Errorf("NewAlertManager: monitor is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if risk.Days <= 0 || risk.Threshold <= 0 {
		risk = DefaultRiskConfig()
	}
	store, err := daylog.NewStore(alertsDir, AlertFileSuffix, logger)
	if err != nil {
		return nil, fmt.Errorf("NewAlertManager: %w", err)
	}
	return &AlertManager{
		store:   store,
		monitor: monitor,
		risk:    risk,
		log:     logger,
		Now:     time.Now,
	}, nil
}

// CheckDepressionAlert raises a warning alert when sustained depression risk
// is detected and no depression alert went out in the last 3 days.
func (am *AlertManager) CheckDepressionAlert() (*Alert, error) {
	if !am.monitor.DetectDepressionRisk(am.risk.Days, am.risk.Threshold) {
		am.log.Debug("no depression risk detected")
		return nil, nil
	}

	if last := am.lastAlert(AlertTypeDepression); last != nil && am.alertAgeDays(last) < 3 {
		am.log.Info("depression alert already sent recently",
			zap.String("last_sent", last.Timestamp))
		return nil, nil
	}

	alert := Alert{
		Type:      AlertTypeDepression,
		Timestamp: am.Now().Format(time.RFC3339),
		Severity:  "warning",
		Message:   "지난 7일 동안 지속적인 부정적 감정이 감지되었습니다. 사용자의 상태를 확인해 주세요.",
		Details: map[string]any{
			"detection_threshold": am.risk.Threshold,
			"detection_period":    am.risk.Days,
		},
	}
	if err := am.save(alert); err != nil {
		return nil, err
	}
	am.log.Warn("depression risk alert created")
	return &alert, nil
}

// CheckEmotionChangeAlert raises an info alert when the last two classified
// turns flipped between positive and negative, at most once per day.
func (am *AlertManager) CheckEmotionChangeAlert() (*Alert, error) {
	entries := am.monitor.LoadRecentLogs(3)
	if len(entries) < 2 {
		return nil, nil
	}

	latest := entries[len(entries)-1]
	previous := entries[len(entries)-2]
	from := previous.Category()
	to := latest.Category()

	flipped := (from == CategoryPositive && to == CategoryNegative) ||
		(from == CategoryNegative && to == CategoryPositive)
	if !flipped {
		return nil, nil
	}

	if last := am.lastAlert(AlertTypeEmotionChange); last != nil && am.alertAgeDays(last) < 1 {
		return nil, nil
	}

	alert := Alert{
		Type:      AlertTypeEmotionChange,
		Timestamp: am.Now().Format(time.RFC3339),
		Severity:  "info",
		Message:   fmt.Sprintf("사용자의 감정 상태가 %s에서 %s로 급격히 변화했습니다.", from, to),
		Details: map[string]any{
			"change_type":    fmt.Sprintf("%s_to_%s", from, to),
			"from_emotion":   from,
			"to_emotion":     to,
			"from_timestamp": previous.Timestamp,
			"to_timestamp":   latest.Timestamp,
		},
	}
	if err := am.save(alert); err != nil {
		return nil, err
	}
	am.log.Info("emotion change alert created", zap.String("change", fmt.Sprintf("%s_to_%s", from, to)))
	return &alert, nil
}

// CheckAll runs every alert check and returns the alerts that fired.
// A failed save aborts with the alerts raised so far.
func (am *AlertManager) CheckAll() ([]Alert, error) {
	var fired []Alert

	if alert, err := am.CheckDepressionAlert(); err != nil {
		return fired, err
	} else if alert != nil {
		fired = append(fired, *alert)
	}

	if alert, err := am.CheckEmotionChangeAlert(); err != nil {
		return fired, err
	} else if alert != nil {
		fired = append(fired, *alert)
	}

	return fired, nil
}

func (am *AlertManager) save(alert Alert) error {
	date := am.Now()
	if ts, err := ParseEntryTime(alert.Timestamp); err == nil {
		date = ts
	}
	if err := am.store.Append(date, alert); err != nil {
		return fmt.Errorf("save alert: %w", err)
	}
	am.log.Info("alert saved", zap.String("path", am.store.Path(date)))
	return nil
}

// lastAlert returns the most recent alert of the given type from the
// trailing week, or nil. Malformed day files are skipped with a warning.
func (am *AlertManager) lastAlert(alertType string) *Alert {
	end := am.Now()
	start := end.AddDate(0, 0, -7)

	var alerts []Alert
	for _, f := range am.store.ReadRange(start, end) {
		dayAlerts, err := fileutils.DecodeObjectOrArray[Alert](f.Data)
		if err != nil {
			am.log.Warn("skipping malformed alert file",
				zap.String("date", f.Date), zap.Error(err))
			continue
		}
		for _, a := range dayAlerts {
			if a.Type == alertType {
				alerts = append(alerts, a)
			}
		}
	}
	if len(alerts) == 0 {
		return nil
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Timestamp > alerts[j].Timestamp
	})
	return &alerts[0]
}

func (am *AlertManager) alertAgeDays(alert *Alert) int {
	ts, err := ParseEntryTime(alert.Timestamp)
	if err != nil {
		return 0
	}
	return int(am.Now().Sub(ts).Hours() / 24)
}
