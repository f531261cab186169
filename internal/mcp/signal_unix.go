//go:build !windows

package mcp

import (
	"os"
	"os/signal"
	"syscall"
)

// notifySignals routes the signals that stop the server to ch.
func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
}
