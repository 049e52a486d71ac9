package multiplexer

import "sync"

var (
	defaultMu  sync.Mutex
	defaultMux *Multiplexer
)

// Default returns the process-wide Multiplexer, creating it on first use.
func Default() *Multiplexer {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultMux == nil {
		defaultMux = New()
	}
	return defaultMux
}

// Shutdown closes the process-wide Multiplexer if one was created. A later
// call to Default creates a fresh instance.
func Shutdown() error {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultMux == nil {
		return nil
	}
	if err := defaultMux.Close(); err != nil {
		return err
	}
	defaultMux = nil
	return nil
}
