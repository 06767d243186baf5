package store

import "testing"

func TestSettingsSetGet(t *testing.T) {
	ss := NewSettingsStore(setupTestDB(t))

	if _, err := ss.Get("s3_bucket"); err == nil {
		t.Error("expected error for missing key")
	}

	if err := ss.Set("s3_bucket", "daybreak-backups"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := ss.Get("s3_bucket")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "daybreak-backups" {
		t.Errorf("value = %q", got)
	}

	// Upsert overwrites.
	if err := ss.Set("s3_bucket", "other"); err != nil {
		t.Fatalf("re-set: %v", err)
	}
	if got, _ = ss.Get("s3_bucket"); got != "other" {
		t.Errorf("value = %q, want overwritten", got)
	}
}

func TestGetS3SettingsPartial(t *testing.T) {
	ss := NewSettingsStore(setupTestDB(t))

	ss.Set("s3_bucket", "daybreak-backups")
	ss.Set("s3_region", "us-east-1")
	ss.Set("unrelated", "nope")

	settings, err := ss.GetS3Settings()
	if err != nil {
		t.Fatalf("get s3 settings: %v", err)
	}
	if len(settings) != 2 {
		t.Errorf("len = %d, want 2 (only configured s3 keys)", len(settings))
	}
	if settings["s3_bucket"] != "daybreak-backups" || settings["s3_region"] != "us-east-1" {
		t.Errorf("settings = %v", settings)
	}
	if _, ok := settings["unrelated"]; ok {
		t.Error("non-s3 key leaked into s3 settings")
	}
}
