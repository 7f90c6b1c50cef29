package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/nerdqaxe/qaxeminer/miner"
	"github.com/nerdqaxe/qaxeminer/types"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const version = "0.3.1"

// The main command describes the service and defaults to mining.
var mainCmd = &cobra.Command{
	Use:   "qaxeminer",
	Short: "Miner daemon for NerdQAxe family boards",
	Long:  `Miner daemon for NerdQAxe family boards`,
	Run: func(cmd *cobra.Command, args []string) {
		mine()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

var mainminer = &miner.Miner{}

type discordConfig struct {
	Webhook         string `mapstructure:"webhook"`
	WatchdogAlert   bool   `mapstructure:"watchdogalert"`
	BlockFoundAlert bool   `mapstructure:"blockfoundalert"`
	BestDiffAlert   bool   `mapstructure:"bestdiffalert"`
}

func init() {
	mainCmd.AddCommand(versionCmd)

	viper.SetDefault("board", "nerdqaxeplus2")
	viper.SetDefault("device", "/dev/ttyS1")
	viper.SetDefault("baudrate", "115200")
	viper.SetDefault("api-listen", "0.0.0.0:8000")
	viper.SetDefault("debug", "info")
	viper.SetDefault("vrdetectio", 3)
	viper.SetDefault("errata", 0.0)

	pflag.String("cfg", "qaxeminer.json", "config file path")
	pflag.Parse()
	viper.BindPFlags(pflag.CommandLine)
	fullcfgname := viper.GetString("cfg")

	log.Print("Config file: ", fullcfgname)
	cfgname := strings.TrimSuffix(fullcfgname, filepath.Ext(fullcfgname))
	if fullcfgname != "qaxeminer.json" {
		viper.SetConfigFile(fullcfgname)
	} else {
		viper.SetConfigName(cfgname)
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/qaxeminer")
	}

	err := viper.ReadInConfig()
	if err != nil {
		println("No config file found. Using built-in defaults.")
	}

	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)
		applyConfig(mainminer)
		mainminer.Reload()
	})
}

func applyConfig(m *miner.Miner) {
	var pools []types.Pool
	viper.UnmarshalKey("pools", &pools)
	m.Pools = pools

	m.BoardName = viper.GetString("board")
	m.DevPath = viper.GetString("device")
	m.BaudRate = viper.GetUint("baudrate")
	m.APIListen = viper.GetString("api-listen")
	m.OTPSecret = viper.GetString("otpsecret")
	m.ErrataFactor = viper.GetFloat64("errata")
	m.LogLevel = viper.GetString("debug")

	m.Hostname = viper.GetString("hostname")
	if m.Hostname == "" {
		m.Hostname, _ = os.Hostname()
	}

	var dc discordConfig
	if err := mapstructure.Decode(viper.GetStringMap("discord"), &dc); err == nil {
		m.DiscordWebhook = dc.Webhook
		m.WatchdogAlert = dc.WatchdogAlert
		m.BlockFoundAlert = dc.BlockFoundAlert
		m.BestDiffAlert = dc.BestDiffAlert
	}
}

func main() {
	mainCmd.Execute()
}

func mine() {
	applyConfig(mainminer)
	mainminer.MinerMain()
}
