//go:build windows

package mcp

import (
	"os"
	"os/signal"
)

// notifySignals routes the signals that stop the server to ch. Windows
// only delivers os.Interrupt.
func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, os.Interrupt)
}
