package main

import (
	"fmt"
	"time"

	"github.com/emomap/engine/internal/dispatcher"
	"github.com/emomap/engine/internal/util"
)

const (
	cmdVersion = ":VERSION:"
	cmdLog     = ":LOG:"
	cmdUptime  = ":UPTIME:"
)

type versionReply struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	BuildDate string `json:"buildDate"`
}

// registerSystemHandlers wires commands that are about the process rather than the map.
func (a *app) registerSystemHandlers(d *dispatcher.Dispatcher) {
	d.Register(cmdVersion, func(dispatcher.Event) (any, error) {
		return versionReply{Name: ExtensionName, Version: CurrentVersion, BuildDate: BuildDate}, nil
	})

	d.Register(cmdUptime, func(dispatcher.Event) (any, error) {
		return time.Since(a.started).Round(time.Second).String(), nil
	})

	// args: source, level, message
	d.Register(cmdLog, func(e dispatcher.Event) (any, error) {
		if len(e.Args) < 3 {
			return nil, fmt.Errorf("%s expects source, level and message, got %d args", cmdLog, len(e.Args))
		}
		a.SlogManager.WriteLog(util.TrimQuotes(e.Args[0]), util.TrimQuotes(e.Args[2]), util.TrimQuotes(e.Args[1]))
		return "ok", nil
	}, dispatcher.Buffered(512))
}
