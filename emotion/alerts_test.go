package emotion

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestAlertManager(t *testing.T, m *TrendMonitor) *AlertManager {
	t.Helper()
	am, err := NewAlertManager(filepath.Join(t.TempDir(), "alerts"), m, DefaultRiskConfig(), nil)
	if err != nil {
		t.Fatalf("NewAlertManager: %v", err)
	}
	am.Now = func() time.Time { return testNow }
	return am
}

func TestCheckDepressionAlert_FiresAndPersists(t *testing.T) {
	t.Parallel()
	m := newTestMonitor(t, nil)
	for d := 0; d < 7; d++ {
		writeDayFile(t, m, d, entriesFor(d, CategoryNegative, CategoryNegative, CategoryNegative))
	}
	am := newTestAlertManager(t, m)

	alert, err := am.CheckDepressionAlert()
	if err != nil {
		t.Fatalf("CheckDepressionAlert: %v", err)
	}
	if alert == nil {
		t.Fatal("expected a depression alert")
	}
	if alert.Type != AlertTypeDepression || alert.Severity != "warning" {
		t.Fatalf("unexpected alert: %+v", alert)
	}

	data, err := os.ReadFile(am.store.Path(testNow))
	if err != nil {
		t.Fatalf("read alert file: %v", err)
	}
	var persisted []Alert
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatalf("unmarshal alert file: %v", err)
	}
	if len(persisted) != 1 || persisted[0].Type != AlertTypeDepression {
		t.Fatalf("persisted = %+v, want one depression alert", persisted)
	}
}

func TestCheckDepressionAlert_DedupedFor3Days(t *testing.T) {
	t.Parallel()
	m := newTestMonitor(t, nil)
	for d := 0; d < 7; d++ {
		writeDayFile(t, m, d, entriesFor(d, CategoryNegative, CategoryNegative))
	}
	am := newTestAlertManager(t, m)

	first, err := am.CheckDepressionAlert()
	if err != nil || first == nil {
		t.Fatalf("first check = %v, %v, want alert", first, err)
	}
	second, err := am.CheckDepressionAlert()
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if second != nil {
		t.Fatalf("second check = %+v, want nil within dedup window", second)
	}
}

func TestCheckDepressionAlert_NoRisk(t *testing.T) {
	t.Parallel()
	m := newTestMonitor(t, nil)
	writeDayFile(t, m, 0, entriesFor(0, CategoryPositive, CategoryPositive))
	am := newTestAlertManager(t, m)

	alert, err := am.CheckDepressionAlert()
	if err != nil {
		t.Fatalf("CheckDepressionAlert: %v", err)
	}
	if alert != nil {
		t.Fatalf("alert = %+v, want nil without risk", alert)
	}
}

func TestCheckEmotionChangeAlert_NegativeToPositive(t *testing.T) {
	t.Parallel()
	m := newTestMonitor(t, nil)
	writeDayFile(t, m, 0, entriesFor(0, CategoryNegative, CategoryPositive))
	am := newTestAlertManager(t, m)

	alert, err := am.CheckEmotionChangeAlert()
	if err != nil {
		t.Fatalf("CheckEmotionChangeAlert: %v", err)
	}
	if alert == nil {
		t.Fatal("expected an emotion change alert")
	}
	if alert.Type != AlertTypeEmotionChange || alert.Severity != "info" {
		t.Fatalf("unexpected alert: %+v", alert)
	}
	if got := alert.Details["change_type"]; got != "negative_to_positive" {
		t.Fatalf("change_type = %v, want negative_to_positive", got)
	}
}

func TestCheckEmotionChangeAlert_NoFlip(t *testing.T) {
	t.Parallel()
	m := newTestMonitor(t, nil)
	writeDayFile(t, m, 0, entriesFor(0, CategoryPositive, CategoryPositive, CategoryNeutral))
	am := newTestAlertManager(t, m)

	alert, err := am.CheckEmotionChangeAlert()
	if err != nil {
		t.Fatalf("CheckEmotionChangeAlert: %v", err)
	}
	if alert != nil {
		t.Fatalf("alert = %+v, want nil without a positive/negative flip", alert)
	}
}

func TestCheckEmotionChangeAlert_DedupedSameDay(t *testing.T) {
	t.Parallel()
	m := newTestMonitor(t, nil)
	writeDayFile(t, m, 0, entriesFor(0, CategoryPositive, CategoryNegative))
	am := newTestAlertManager(t, m)

	first, err := am.CheckEmotionChangeAlert()
	if err != nil || first == nil {
		t.Fatalf("first check = %v, %v, want alert", first, err)
	}
	second, err := am.CheckEmotionChangeAlert()
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if second != nil {
		t.Fatalf("second check = %+v, want nil within dedup window", second)
	}
}

func TestCheckAll_BothAlertsFire(t *testing.T) {
	t.Parallel()
	m := newTestMonitor(t, nil)
	for d := 1; d < 7; d++ {
		writeDayFile(t, m, d, entriesFor(d, CategoryNegative, CategoryNegative))
	}
	writeDayFile(t, m, 0, entriesFor(0, CategoryNegative, CategoryPositive))
	am := newTestAlertManager(t, m)

	fired, err := am.CheckAll()
	if err != nil {
		t.Fatalf("CheckAll: %v", err)
	}
	if len(fired) != 2 {
		t.Fatalf("fired %d alerts, want 2: %+v", len(fired), fired)
	}
	if fired[0].Type != AlertTypeDepression || fired[1].Type != AlertTypeEmotionChange {
		t.Fatalf("unexpected alert order: %+v", fired)
	}
}
