// Copyright 2021 Hewlett Packard Enterprise Development LP

package config

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	notify "github.com/fsnotify/fsnotify"
	log "github.com/hpe-storage/fc-zone-libs/logger"
)

// FileWatch contains watcher attributes.  The zoning configuration is immutable for the process
// lifetime, so the watcher never reloads anything; it only tells operators that an edited file
// will not take effect until restart.
type FileWatch struct {
	// Channel to receive the stop event.
	watchStop chan struct{}
	// fsnotify watcher.
	watchList *notify.Watcher
	// Anonymous function.
	watchRun func()
	// Wait
	wg sync.WaitGroup
}

// NewConfigWatcher returns a watcher primed with the given config file and a job that logs a
// restart reminder whenever the file changes on disk.
func NewConfigWatcher(path string) (*FileWatch, error) {
	watch, err := InitializeWatcher(func() {
		log.Warnf("zoning configuration %s changed on disk; changes take effect after restart", path)
	})
	if err != nil {
		return nil, err
	}
	if err := watch.AddWatchList([]string{path}); err != nil {
		return nil, err
	}
	return watch, nil
}

// InitializeWatcher is used to initialize fileWatch with anonymous function and new watcher.
// It monitors os signals like SIGTERM,SIGHUP etc in a separate thread for graceful exit of
// the watcher.
func InitializeWatcher(job func()) (*FileWatch, error) {
	log.Trace(">>>>> InitializeWatcher")
	defer log.Trace("<<<<< InitializeWatcher")
	watcher, err := notify.NewWatcher()
	if err != nil {
		return nil, err
	}
	watch := &FileWatch{
		watchStop: make(chan struct{}),
		watchList: watcher,
		watchRun:  job,
	}
	watch.wg.Add(1)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc,
		syscall.SIGABRT,
		syscall.SIGTERM,
		syscall.SIGHUP,
	)
	go func() {
		sig := <-sigc
		log.Infof("Received %s os signal. Exiting...", sig)
		watch.stopWatcher()
		watch.wg.Wait()
	}()

	return watch, nil
}

// AddWatchList adds files and/or directories to watch
func (w *FileWatch) AddWatchList(files []string) error {
	log.Trace(">>>>> AddWatchList")
	defer log.Trace("<<<<< AddWatchList")

	if len(files) == 0 {
		return fmt.Errorf("empty watch list is not supported, there should be at least one file to watch")
	}

	for _, fPath := range files {
		if err := w.watchList.Add(fPath); err != nil {
			log.Warnf("Failed to add [%s] file to watch list, err %s", fPath, err.Error())
		} else {
			log.Tracef("Successfully added [%s] file to watch list", fPath)
		}
	}
	return nil
}

// StartWatcher runs the watch loop until the process receives a stop signal
func (w *FileWatch) StartWatcher() {
	log.Trace(">>>>> StartWatcher")
	defer log.Trace("<<<<< StartWatcher")
	pid := os.Getpid()
	log.Tracef("Watcher [%d PID] successfully started", pid)

	// There might be spurious updates, debounce for a minute after running the job.  A stopped
	// timer's channel never fires, so events pass straight through until the job has run once.
	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	quiet := false
	for {
		select {
		case <-w.watchStop:
			log.Infof("Stopping [%d PID] zoning config watcher", pid)
			debounce.Stop()
			w.wg.Done()
			w.watchList.Close()
			return
		case <-debounce.C:
			quiet = false
		case <-w.watchList.Events:
			if quiet {
				continue
			}
			w.watchRun()
			quiet = true
			debounce.Reset(1 * time.Minute)
		}
	}
}

// This is used internally to stop the watcher.
func (w *FileWatch) stopWatcher() {
	log.Trace(">>>>> stopWatcher")
	defer log.Trace("<<<<< stopWatcher")
	close(w.watchStop)
}
