package statistics

import (
	"sync"
	"time"

	gometrics "github.com/rcrowley/go-metrics"

	"github.com/brodyxchen/vsockcmd/statistics/metrics"
)

var (
	serverMu        sync.Mutex
	serverCloseChan chan struct{}

	ServerReg = gometrics.NewRegistry()

	EnableServer = false
)

func RunServer(freq time.Duration) {
	serverMu.Lock()
	defer serverMu.Unlock()
	if !EnableServer || serverCloseChan != nil {
		return
	}
	serverCloseChan = make(chan struct{})
	metrics.LogRoutine("Server", ServerReg, freq, serverCloseChan)
}

func CloseServer() {
	serverMu.Lock()
	defer serverMu.Unlock()
	if serverCloseChan != nil {
		close(serverCloseChan)
		serverCloseChan = nil
	}
	ServerReg.UnregisterAll()
}

func ServerHist(name string, d time.Duration) {
	hist(ServerReg, name).Update(d.Milliseconds())
}

func ServerCount(name string) {
	gometrics.GetOrRegisterCounter(name, ServerReg).Inc(1)
}
