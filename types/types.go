package types

// Pool is one upstream pool endpoint from the config file.
type Pool struct {
	URL     string `json:"url"`
	User    string `json:"user"`
	Pass    string `json:"pass"`
	TLS     bool   `json:"tls,omitempty"`
	Primary bool   `json:"primary,omitempty"`
}

type PoolConnectionStates int

const (
	NotReady PoolConnectionStates = iota + 1
	Alive
	Sick
	Dead
)

type PoolStates struct {
	Status       PoolConnectionStates `json:"status"`
	User         string               `json:"user"`
	PoolAddr     string               `json:"pooladdr"`
	Accept       int32                `json:"accept"`
	Reject       int32                `json:"reject"`
	Diff         float64              `json:"diff"`
	LastAccepted int64                `json:"lastaccepted"`
	Active       bool                 `json:"active"`
}

// DeviceStates is the hardware half of the status report.
type DeviceStates struct {
	DeviceModel   string    `json:"deviceModel"`
	AsicModel     string    `json:"asicModel"`
	AsicCount     int       `json:"asicCount"`
	FrequencyMhz  int       `json:"frequency"`
	VoltageMillis int       `json:"coreVoltage"`
	ChipHashrates []float64 `json:"chipHashrates"`
}

// HashrateStates is the monitor's published aggregate plus the windowed
// averages derived from the publish history.
type HashrateStates struct {
	RawHz          float64 `json:"hashrate"`
	SmoothedHz     float64 `json:"smoothedHashrate"`
	Avg1mHz        float64 `json:"hashrate1m"`
	Avg5mHz        float64 `json:"hashrate5m"`
	Avg1hHz        float64 `json:"hashrate1h"`
	Formatted      string  `json:"hashrateFormatted"`
	DroppedSamples uint64  `json:"droppedSamples"`
}

// SystemStatus is the full read-only snapshot served by the control plane.
type SystemStatus struct {
	Hostname  string          `json:"hostname"`
	Uptime    int64           `json:"uptime"`
	Time      int64           `json:"time"`
	BestDiff  string          `json:"bestDiff"`
	Device    *DeviceStates   `json:"device"`
	Hashrate  *HashrateStates `json:"hashrate"`
	Pools     []*PoolStates   `json:"pools"`
	MinerUp   bool            `json:"minerUp"`
	MinerDown bool            `json:"minerDown"`
}
