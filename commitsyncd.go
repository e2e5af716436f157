// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/commitsync/commitsyncd/internal/version"
)

// softMemLimit is the soft memory limit imposed on the runtime.  Blob
// fetches allocate in bursts of several hundred kilobytes per blob.
const softMemLimit = 1 << 30 // 1 GiB

// commitsyncdMain is the real main function for commitsyncd.  It is necessary
// to work around the fact that deferred functions do not run when os.Exit()
// is called.
func commitsyncdMain() error {
	// Load configuration and parse command line.  This function also
	// initializes logging and configures it accordingly.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	cfg, _, err := loadConfig(appName)
	if err != nil {
		usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
		fmt.Fprintln(os.Stderr, err)
		var e errSuppressUsage
		if !errors.As(err, &e) {
			fmt.Fprintln(os.Stderr, usageMessage)
		}
		return err
	}
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	// Get a context that will be canceled when a shutdown signal has been
	// triggered either from an OS signal such as SIGINT (Ctrl+C) or from
	// another subsystem such as the sync loop.
	ctx := shutdownListener()
	defer csynLog.Info("Shutdown complete")

	// Show version and home dir at startup.
	csynLog.Infof("Version %s (Go version %s %s/%s)", version.String(),
		runtime.Version(), runtime.GOOS, runtime.GOARCH)
	csynLog.Infof("Home dir: %s", cfg.HomeDir)
	csynLog.Infof("Blob cache: %s", cfg.BlobsPath)
	if cfg.NoFileLogging {
		csynLog.Info("File logging disabled")
	}

	debug.SetMemoryLimit(softMemLimit)
	csynLog.Debugf("Soft memory limit: %d bytes", softMemLimit)

	// Enable http profile server if requested.
	var profiler profileServer
	defer profiler.Stop()
	if cfg.Profile != "" {
		if err := profiler.Start(cfg.Profile); err != nil {
			csynLog.Warnf("unable to start profile server: %v", err)
			return err
		}
	}

	// Return now if a shutdown signal was triggered.
	if shutdownRequested(ctx) {
		return nil
	}

	svr, err := newServer(ctx, cfg)
	if err != nil {
		csynLog.Errorf("Unable to start server: %v", err)
		return err
	}
	defer svr.Close()

	if shutdownRequested(ctx) {
		return nil
	}

	// Run the server.  This will block until the context is cancelled which
	// happens when the interrupt signal is received from an OS signal or
	// shutdown is requested through the sync loop.
	svr.Run(ctx)
	csynLog.Infof("Server shutdown complete")
	return nil
}

func main() {
	// Work around defer not working after os.Exit()
	if err := commitsyncdMain(); err != nil {
		os.Exit(1)
	}
}
