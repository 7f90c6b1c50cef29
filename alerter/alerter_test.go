package alerter

import (
	"strings"
	"testing"

	"go.uber.org/zap"
)

const testWebhook = "https://discord.com/api/webhooks/1234567890/AbCdEfGh-secret_token"

func TestParseWebhookURL(t *testing.T) {
	id, token, err := parseWebhookURL(testWebhook)
	if err != nil {
		t.Fatalf("parseWebhookURL: %v", err)
	}
	if id != "1234567890" || token != "AbCdEfGh-secret_token" {
		t.Fatalf("parsed (%q, %q)", id, token)
	}

	for _, bad := range []string{"", "https://example.com", "https://discord.com/api/webhooks/onlyid"} {
		if _, _, err := parseWebhookURL(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestDisabledAlertsAreNotQueued(t *testing.T) {
	a, err := New(Config{WebhookURL: testWebhook, Hostname: "bench"}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.SendWatchdogAlert() {
		t.Errorf("watchdog alert queued although disabled")
	}
	if a.SendBestDiffAlert(1000000) {
		t.Errorf("best diff alert queued although disabled")
	}
	if a.SendBlockFoundAlert(4096, 0x1d00ffff) {
		t.Errorf("block found alert queued although disabled")
	}
	if len(a.queue) != 0 {
		t.Fatalf("queue length = %d, want 0", len(a.queue))
	}
}

func TestEnabledAlertIsDecoratedAndQueued(t *testing.T) {
	a, err := New(Config{
		WebhookURL:    testWebhook,
		Hostname:      "bench",
		BestDiffAlert: true,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// delivery loop not started, message stays queued
	if !a.SendBestDiffAlert(2500000) {
		t.Fatalf("enabled alert not queued")
	}
	msg := <-a.queue
	if !strings.Contains(msg, "2.50M") {
		t.Errorf("missing suffixed difficulty in %q", msg)
	}
	if !strings.Contains(msg, "Hostname: bench") {
		t.Errorf("missing hostname decoration in %q", msg)
	}
}

func TestQueueOverflowDropsAlert(t *testing.T) {
	a, err := New(Config{
		WebhookURL:    testWebhook,
		WatchdogAlert: true,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < queueLen; i++ {
		if !a.SendWatchdogAlert() {
			t.Fatalf("alert %d rejected with queue space left", i)
		}
	}
	if a.SendWatchdogAlert() {
		t.Fatalf("alert accepted on a full queue")
	}
}
