// cmd/daqnode/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"

	"github.com/tamzrod/can-daq-node/internal/config"
	"github.com/tamzrod/can-daq-node/internal/node"
	"github.com/tamzrod/can-daq-node/internal/status"
)

func main() {
	cfgPath := flag.String("config", "configs/node.yaml", "node configuration file")
	flag.Parse()
	defer glog.Flush()

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		glog.Fatalf("config load failed (code 0x%04X): %v", status.ErrorCode(err), err)
	}

	if err := config.Validate(cfg); err != nil {
		glog.Fatalf("config validation failed (code 0x%04X): %v", status.ErrorCode(err), err)
	}
	config.Normalize(cfg)

	// --------------------
	// Build node
	// --------------------

	n, err := node.Build(cfg)
	if err != nil {
		glog.Fatalf("node build failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n.Start(ctx)

	// --------------------
	// Cycle loop (runs until stopped)
	// --------------------

	err = n.Scheduler.Run(ctx)
	stop()
	if cerr := n.Close(); cerr != nil {
		glog.Errorf("node close: %v", cerr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		glog.Fatalf("cycle loop stopped: %v", err)
	}
	st := n.Stats()
	glog.Infof("node %s stopped after signal: %d cycles, %d overruns, %d frames published, %d echoed, %d foreign",
		cfg.Node.Name, st.Cycles, st.Overruns, st.Published, st.Echoed, st.Foreign)
}
