// SPDX-License-Identifier: GPL-3.0-or-later

package cluster

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/anyks-go/awh/settings"
)

// fdFromMaster/fdToMaster are the well-known descriptor numbers the
// master hands each child through exec.Cmd.ExtraFiles (fd 0-2 are
// stdin/stdout/stderr, so the first two extra files land at 3 and 4).
const (
	fdFromMaster = 3
	fdToMaster   = 4
)

// WorkerCallbacks are the child-side named hooks a worker process
// supplies to observe IPC from the master.
type WorkerCallbacks struct {
	// Message fires once per complete frame read from the master.
	Message func(payload []byte)
	// Quit fires when the master sends a quit frame or closes the pipe,
	// signalling the worker should shut down.
	Quit func()
	// Error fires on a non-fatal IPC error.
	Error func(err error)
}

// Worker is the child-process half of the cluster IPC channel: a thin
// wrapper around the two pipe descriptors the master passed down,
// matching spec.md §4.12's "IPC on the worker side is optionally
// asynchronous ... or synchronous inline" by running its read loop on one
// dedicated goroutine and leaving dispatch mode to the caller's callback.
type Worker struct {
	id  WorkerID
	cfg settings.Cluster

	fromMaster *os.File
	toMaster   *os.File

	mu     sync.Mutex
	closed bool

	callbacks WorkerCallbacks
	logger    *slog.Logger
}

// NewWorker constructs a [*Worker] for the current process, assuming it
// was launched by [Master.spawn] (i.e. [WorkerIndexFromEnv] reported ok).
// The caller passes the WorkerID WorkerIndexFromEnv returned.
func NewWorker(id WorkerID, cfg settings.Cluster, callbacks WorkerCallbacks, logger *slog.Logger) *Worker {
	return &Worker{
		id:         id,
		cfg:        cfg,
		fromMaster: os.NewFile(fdFromMaster, "cluster-from-master"),
		toMaster:   os.NewFile(fdToMaster, "cluster-to-master"),
		callbacks:  callbacks,
		logger:     defaultLogger(logger),
	}
}

// Run starts the read loop draining frames from the master. It blocks
// until the pipe closes or a quit frame arrives, then returns.
func (w *Worker) Run() {
	fr := newFrameReader(w.fromMaster)
	maxMessage := clampMaxMessage(w.cfg)
	for {
		_, payload, quit, err := fr.next(maxMessage)
		if err != nil {
			if !errors.Is(err, io.EOF) && w.callbacks.Error != nil {
				w.callbacks.Error(err)
			}
			if w.callbacks.Quit != nil {
				w.callbacks.Quit()
			}
			return
		}
		if w.callbacks.Message != nil {
			w.callbacks.Message(payload)
		}
		if quit {
			if w.callbacks.Quit != nil {
				w.callbacks.Quit()
			}
			return
		}
	}
}

// Send writes payload back to the master.
func (w *Worker) Send(payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("cluster: worker %d pipe already closed", w.id)
	}
	return writeFrame(w.toMaster, int32(os.Getpid()), payload, false)
}

// Close releases the worker's pipe descriptors. Safe to call once the
// read loop has returned.
func (w *Worker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	err1 := w.fromMaster.Close()
	err2 := w.toMaster.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
