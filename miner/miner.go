package miner

import (
	"os"
	"sync"
	"time"

	"github.com/nerdqaxe/qaxeminer/alerter"
	"github.com/nerdqaxe/qaxeminer/api"
	"github.com/nerdqaxe/qaxeminer/asic"
	"github.com/nerdqaxe/qaxeminer/boards"
	"github.com/nerdqaxe/qaxeminer/clients"
	"github.com/nerdqaxe/qaxeminer/clients/stratum"
	"github.com/nerdqaxe/qaxeminer/monitor"
	"github.com/nerdqaxe/qaxeminer/types"
	"github.com/nerdqaxe/qaxeminer/util"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var atom = zap.NewAtomicLevel()
var logger *zap.Logger

func selectZapLevel(loglevel string) zapcore.Level {
	var level zapcore.Level
	switch loglevel {
	case "debug":
		level = zap.DebugLevel
	case "info":
		level = zap.InfoLevel
	case "error":
		level = zap.ErrorLevel
	default:
		level = zap.InfoLevel
	}
	return level
}

func initLogger(loglevel string) *zap.Logger {
	level := selectZapLevel(loglevel)
	encoderCfg := zap.NewProductionEncoderConfig()
	logger = zap.New(zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(os.Stdout),
		atom,
	))
	defer logger.Sync()
	atom.SetLevel(level)
	return logger
}

// publishesPerMinute turns the publish history into wall-clock averages.
// The dispatcher polls once per cycle deadline, so the monitor publishes
// once per deadline and the history holds one entry per deadline.
const publishesPerMinute = int(time.Minute / monitor.DefaultCycleDeadline)

// watchdog: a device whose smoothed hashrate stays at zero this long gets
// an alert and a restart
const watchdogStall = time.Hour

//Miner wires the whole device together: board variant, ASIC receive path,
// hashrate monitor, pool connections, alerter and the control API.
type Miner struct {
	Pools []types.Pool

	BoardName       string
	DevPath         string
	BaudRate        uint
	APIListen       string
	OTPSecret       string
	DiscordWebhook  string
	Hostname        string
	WatchdogAlert   bool
	BlockFoundAlert bool
	BestDiffAlert   bool
	ErrataFactor    float64
	LogLevel        string

	logger     *zap.Logger
	board      boards.Board
	mon        *monitor.HashrateMonitor
	dispatcher *asic.Dispatcher
	alert      *alerter.Alerter
	started    time.Time

	mu       sync.Mutex
	clients  []clients.Client
	bestDiff uint64

	quit chan struct{}
}

//MinerMain starts the daemon and blocks serving the control API.
func (m *Miner) MinerMain() {
	logger := initLogger(m.LogLevel)
	m.logger = logger
	m.started = time.Now()
	m.quit = make(chan struct{})

	board, err := boards.New(m.BoardName)
	if err != nil {
		logger.Fatal("board selection", zap.Error(err))
	}
	m.board = board
	logger.Info("board selected",
		zap.String("device", board.DeviceModel()),
		zap.String("asic", board.AsicModel()),
		zap.Int("asiccount", board.AsicCount()))

	chip, err := asic.ForModel(board.AsicModel())
	if err != nil {
		logger.Fatal("asic model", zap.Error(err))
	}

	m.mon = monitor.New(logger)
	if m.ErrataFactor > 0 {
		m.mon.SetErrataFactor(m.ErrataFactor)
	}
	if !m.mon.Start(board, chip) {
		logger.Fatal("hashrate monitor refused to start")
	}

	m.dispatcher = asic.NewDispatcher(asic.DispatcherArgs{
		DevPath:      m.DevPath,
		BaudRate:     m.BaudRate,
		PollInterval: monitor.DefaultCycleDeadline,
		Sink:         m.mon,
		Logger:       logger,
	})
	if err := m.dispatcher.Start(); err != nil {
		logger.Fatal("serial dispatcher", zap.Error(err))
	}

	m.startClients()

	if m.DiscordWebhook != "" {
		cfg := alerter.Config{
			WebhookURL:      m.DiscordWebhook,
			Hostname:        m.Hostname,
			WatchdogAlert:   m.WatchdogAlert,
			BlockFoundAlert: m.BlockFoundAlert,
			BestDiffAlert:   m.BestDiffAlert,
		}
		a, err := alerter.New(cfg, logger)
		if err != nil {
			logger.Warn("alerter disabled", zap.Error(err))
		} else {
			m.alert = a
			a.Start()
		}
	}

	go m.watchdog()

	guard := api.NewOTPGuard(m.OTPSecret, logger)
	server := api.NewServer(m.APIListen, m, m, guard, logger)
	if err := server.Listen(); err != nil {
		logger.Fatal("control API", zap.Error(err))
	}
}

//Reload applies a changed config: log level and pool set. Hardware wiring
// is fixed at start-up.
func (m *Miner) Reload() {
	logger.Info("reloading miner")
	atom.SetLevel(selectZapLevel(m.LogLevel))

	m.mu.Lock()
	old := m.clients
	m.clients = nil
	m.mu.Unlock()

	for _, cli := range old {
		logger.Info("stopping pool", zap.String("pool", cli.GetPoolStats().PoolAddr))
		cli.Stop()
	}
	m.startClients()
}

func (m *Miner) startClients() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients = make([]clients.Client, 0, len(m.Pools))
	for _, pool := range m.Pools {
		cli := stratum.NewClient(pool, m.logger)
		go cli.Start()
		m.clients = append(m.clients, cli)
	}
}

// UpdateBestDifficulty records a new session best and, when it actually
// improves on the previous one, fires the best-difficulty alert.
func (m *Miner) UpdateBestDifficulty(diff uint64) {
	m.mu.Lock()
	improved := diff > m.bestDiff
	if improved {
		m.bestDiff = diff
	}
	alert := m.alert
	m.mu.Unlock()

	if improved && alert != nil {
		alert.SendBestDiffAlert(diff)
	}
}

//Status implements api.StatusProvider.
func (m *Miner) Status() *types.SystemStatus {
	m.mu.Lock()
	clis := make([]clients.Client, len(m.clients))
	copy(clis, m.clients)
	bestDiff := m.bestDiff
	m.mu.Unlock()

	var poolsInfo []*types.PoolStates
	for _, cli := range clis {
		stats := cli.GetPoolStats()
		poolsInfo = append(poolsInfo, &stats)
	}

	raw := m.mon.Hashrate()
	status := &types.SystemStatus{
		Hostname: m.Hostname,
		Uptime:   int64(time.Since(m.started).Seconds()),
		Time:     time.Now().Unix(),
		BestDiff: util.SuffixString(bestDiff, 3),
		Device: &types.DeviceStates{
			DeviceModel:   m.board.DeviceModel(),
			AsicModel:     m.board.AsicModel(),
			AsicCount:     m.board.AsicCount(),
			FrequencyMhz:  m.board.DefaultFrequencyMhz(),
			VoltageMillis: m.board.DefaultVoltageMillis(),
			ChipHashrates: m.mon.ChipHashrates(),
		},
		Hashrate: &types.HashrateStates{
			RawHz:          raw,
			SmoothedHz:     m.mon.SmoothedTotalChipHashrate(),
			Avg1mHz:        m.mon.RecentAverage(publishesPerMinute),
			Avg5mHz:        m.mon.RecentAverage(5 * publishesPerMinute),
			Avg1hHz:        m.mon.RecentAverage(60 * publishesPerMinute),
			Formatted:      util.SuffixString(uint64(raw), 3),
			DroppedSamples: m.mon.DroppedSamples(),
		},
		Pools:     poolsInfo,
		MinerUp:   true,
		MinerDown: false,
	}
	return status
}

//Shutdown implements api.PowerController. The process exits cleanly; the
// service manager decides whether the host powers off.
func (m *Miner) Shutdown() {
	m.logger.Info("shutting down")
	time.Sleep(time.Second) // let the HTTP response flush
	m.stopAll()
	os.Exit(0)
}

//Restart implements api.PowerController. A non-zero exit makes the service
// manager start a fresh instance.
func (m *Miner) Restart() {
	m.logger.Info("restarting")
	time.Sleep(time.Second)
	m.stopAll()
	os.Exit(1)
}

func (m *Miner) stopAll() {
	close(m.quit)
	if m.dispatcher != nil {
		m.dispatcher.Stop()
	}
	if m.mon != nil {
		m.mon.Stop()
	}
	if m.alert != nil {
		m.alert.Stop()
	}
	m.mu.Lock()
	clis := m.clients
	m.mu.Unlock()
	for _, cli := range clis {
		cli.Stop()
	}
}

// watchdog restarts the device when the smoothed hashrate sits at zero for
// a full stall window, alerting first when alerts are configured.
func (m *Miner) watchdog() {
	lastNonZero := time.Now()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-m.quit:
			return
		case <-ticker.C:
			if m.mon.SmoothedTotalChipHashrate() > 0 {
				lastNonZero = time.Now()
				continue
			}
			if time.Since(lastNonZero) > watchdogStall {
				m.logger.Error("watchdog: no hashrate for over an hour")
				if m.alert != nil {
					m.alert.SendWatchdogAlert()
				}
				m.Restart()
			}
		}
	}
}
