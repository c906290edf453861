package transfer

import "testing"

func TestParseTimestampMillis(t *testing.T) {
	ms, err := parseTimestampMillis("2026-01-01T00:00:00.123Z")
	if err != nil {
		t.Fatalf("parseTimestampMillis() error = %v", err)
	}
	if ms <= 0 {
		t.Errorf("parseTimestampMillis() = %d, want positive", ms)
	}
}

func TestParseTimestampMillisRejectsGarbage(t *testing.T) {
	if _, err := parseTimestampMillis("not a timestamp"); err == nil {
		t.Error("parseTimestampMillis() should have errored on garbage input")
	}
}

func TestParseTimestampMillisAcceptsZoneLess(t *testing.T) {
	ms, err := parseTimestampMillis("2026-01-01T00:00:00")
	if err != nil {
		t.Fatalf("parseTimestampMillis() error = %v", err)
	}
	if ms <= 0 {
		t.Errorf("parseTimestampMillis() = %d, want positive", ms)
	}
}

func TestEnrichLabelsSetsImportMonth(t *testing.T) {
	labels := map[string]string{}
	enrichLabels(labels, "2026-03-15T10:00:00Z")

	if labels["imported"] != "yes" {
		t.Errorf("imported = %q, want yes", labels["imported"])
	}
	if labels["import_month"] != "202603" {
		t.Errorf("import_month = %q, want 202603", labels["import_month"])
	}
}
