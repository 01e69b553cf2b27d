package statistics

import (
	"sync"
	"time"

	gometrics "github.com/rcrowley/go-metrics"

	"github.com/brodyxchen/vsockcmd/statistics/metrics"
)

var (
	clientMu        sync.Mutex
	clientCloseChan chan struct{}

	ClientReg = gometrics.NewRegistry()

	EnableClient = false
)

// RunClient starts logging the client registry every freq, once.
func RunClient(freq time.Duration) {
	clientMu.Lock()
	defer clientMu.Unlock()
	if !EnableClient || clientCloseChan != nil {
		return
	}
	clientCloseChan = make(chan struct{})
	metrics.LogRoutine("Client", ClientReg, freq, clientCloseChan)
}

func CloseClient() {
	clientMu.Lock()
	defer clientMu.Unlock()
	if clientCloseChan != nil {
		close(clientCloseChan)
		clientCloseChan = nil
	}
	ClientReg.UnregisterAll()
}

// ClientHist records d in milliseconds under name.
func ClientHist(name string, d time.Duration) {
	hist(ClientReg, name).Update(d.Milliseconds())
}

func ClientCount(name string) {
	gometrics.GetOrRegisterCounter(name, ClientReg).Inc(1)
}

func hist(r gometrics.Registry, name string) gometrics.Histogram {
	return gometrics.GetOrRegisterHistogram(name, r, gometrics.NewExpDecaySample(1028, 0.015))
}
