package main

import (
	"testing"

	"github.com/nerdqaxe/qaxeminer/miner"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/viper"
)

func TestApplyConfigDefaults(t *testing.T) {
	viper.Reset()
	viper.SetDefault("board", "nerdqaxeplus2")
	viper.SetDefault("device", "/dev/ttyS1")
	viper.SetDefault("baudrate", "115200")
	viper.SetDefault("api-listen", "0.0.0.0:8000")
	viper.SetDefault("debug", "info")

	m := &miner.Miner{}
	applyConfig(m)
	spew.Dump(m)

	if m.BoardName != "nerdqaxeplus2" {
		t.Errorf("BoardName = %q, want nerdqaxeplus2", m.BoardName)
	}
	if m.DevPath != "/dev/ttyS1" {
		t.Errorf("DevPath = %q, want /dev/ttyS1", m.DevPath)
	}
	if m.BaudRate != 115200 {
		t.Errorf("BaudRate = %d, want 115200", m.BaudRate)
	}
	if m.Hostname == "" {
		t.Errorf("Hostname must fall back to the OS hostname")
	}
}

func TestApplyConfigDiscordBlock(t *testing.T) {
	viper.Reset()
	viper.Set("discord", map[string]interface{}{
		"webhook":         "https://discord.com/api/webhooks/1/tok",
		"watchdogalert":   true,
		"bestdiffalert":   true,
		"blockfoundalert": false,
	})

	m := &miner.Miner{}
	applyConfig(m)

	if m.DiscordWebhook == "" || !m.WatchdogAlert || !m.BestDiffAlert || m.BlockFoundAlert {
		t.Errorf("discord config not applied: %+v", m)
	}
}
