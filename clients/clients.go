//Package clients defines the contract between the miner orchestrator and a
// pool connection. Protocol framing lives behind this boundary; the rest of
// the daemon only ever sees connection state and counters.
package clients

import "github.com/nerdqaxe/qaxeminer/types"

// Client is a managed connection to one upstream pool.
type Client interface {
	Start()
	Stop()
	PoolConnectionStates() types.PoolConnectionStates
	GetPoolStats() types.PoolStates
}
