//Package alerter pushes operational alerts (watchdog reboot, block found,
// new best difficulty) to a Discord webhook. Alerts are queued and
// delivered by a background goroutine so no caller ever blocks on Discord.
package alerter

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/nerdqaxe/qaxeminer/util"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const queueLen = 4

// Config gates the individual alert kinds and points at the webhook.
type Config struct {
	WebhookURL string
	Hostname   string

	WatchdogAlert   bool
	BlockFoundAlert bool
	BestDiffAlert   bool
}

type Alerter struct {
	cfg     Config
	session *discordgo.Session

	webhookID    string
	webhookToken string

	queue  chan string
	quit   chan struct{}
	logger *zap.Logger
}

// New parses the webhook URL and prepares the delivery queue. An error
// means the webhook URL is unusable; callers may run without an alerter.
func New(cfg Config, logger *zap.Logger) (*Alerter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	id, token, err := parseWebhookURL(cfg.WebhookURL)
	if err != nil {
		return nil, err
	}
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("alerter: session: %w", err)
	}
	return &Alerter{
		cfg:          cfg,
		session:      session,
		webhookID:    id,
		webhookToken: token,
		queue:        make(chan string, queueLen),
		quit:         make(chan struct{}),
		logger:       logger,
	}, nil
}

func (a *Alerter) Start() {
	go a.deliverLoop()
}

func (a *Alerter) Stop() {
	close(a.quit)
}

// SendWatchdogAlert reports a watchdog-forced reboot. Returns false when
// the alert kind is disabled or the queue is full.
func (a *Alerter) SendWatchdogAlert() bool {
	if !a.cfg.WatchdogAlert {
		a.logger.Info("watchdog alert not enabled")
		return false
	}
	return a.enqueue("Device rebooted because there was no share for more than 1h!")
}

func (a *Alerter) SendBlockFoundAlert(diff float64, nBits uint32) bool {
	if !a.cfg.BlockFoundAlert {
		a.logger.Info("block found alert not enabled")
		return false
	}
	networkDiff := util.CalculateNetworkDifficulty(nBits)
	return a.enqueue(fmt.Sprintf("BLOCK FOUND! 🎉 share diff %.0f vs network diff %.0f", diff, networkDiff))
}

func (a *Alerter) SendBestDiffAlert(bestDiff uint64) bool {
	if !a.cfg.BestDiffAlert {
		a.logger.Info("best difficulty alert not enabled")
		return false
	}
	return a.enqueue(fmt.Sprintf("New best difficulty: %s", util.SuffixString(bestDiff, 3)))
}

// enqueue decorates the message with the device identity and queues it
// without blocking; a full queue drops the alert.
func (a *Alerter) enqueue(message string) bool {
	decorated := fmt.Sprintf("%s\n```\nHostname: %s\nIP:       %s\n```",
		message, a.cfg.Hostname, localIP())

	select {
	case a.queue <- decorated:
		return true
	default:
		a.logger.Warn("alert queue full, dropping alert")
		return false
	}
}

func (a *Alerter) deliverLoop() {
	for {
		select {
		case <-a.quit:
			return
		case msg := <-a.queue:
			a.deliver(msg)
		}
	}
}

func (a *Alerter) deliver(msg string) {
	_, err := a.session.WebhookExecute(a.webhookID, a.webhookToken, true,
		&discordgo.WebhookParams{Content: msg})
	if err != nil {
		a.logger.Error("discord delivery failed", zap.Error(err))
		return
	}
	a.logger.Info("discord alert sent")
}

// parseWebhookURL splits .../api/webhooks/{id}/{token} into its parts.
func parseWebhookURL(url string) (id, token string, err error) {
	const marker = "/webhooks/"
	i := strings.Index(url, marker)
	if i < 0 {
		return "", "", fmt.Errorf("alerter: not a webhook URL: %q", url)
	}
	rest := strings.Trim(url[i+len(marker):], "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("alerter: not a webhook URL: %q", url)
	}
	return parts[0], parts[1], nil
}

// localIP is best effort; alerts still go out when the lookup fails.
func localIP() string {
	conn, err := net.DialTimeout("udp", "8.8.8.8:80", time.Second)
	if err != nil {
		return "unknown"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "unknown"
}
