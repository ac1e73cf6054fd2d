// SPDX-License-Identifier: GPL-3.0-or-later

package cluster

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/anyks-go/awh/settings"
)

// slot holds the master's half of one worker's state: the pipe ends it
// keeps, the exec.Cmd, and bookkeeping needed for the restart decision.
type slot struct {
	mu         sync.Mutex
	cmd        *exec.Cmd
	toWorker   *os.File // master write end of master->worker pipe
	fromWorker *os.File // master read end of worker->master pipe
	pid        int
	startedAt  time.Time
	stopped    bool
}

// Master forks and supervises cfg.Workers worker processes, re-executing
// the current binary with [workerEnvKey] set so the same binary doubles
// as both master and worker, exactly as the teacher's single-binary
// cmd/ layout expects.
type Master struct {
	cfg       settings.Cluster
	callbacks Callbacks
	logger    *slog.Logger

	argv0 string
	args  []string
	env   []string

	mu      sync.Mutex
	slots   []*slot
	failed  bool
	closing bool
}

// NewMaster constructs a [*Master] ready for [Master.Start]. argv0/args
// are the executable and arguments to re-exec for each worker (typically
// os.Args[0] and os.Args[1:]); env is the base environment to extend with
// the worker-slot marker (typically os.Environ()).
func NewMaster(cfg settings.Cluster, callbacks Callbacks, argv0 string, args, env []string, logger *slog.Logger) *Master {
	return &Master{
		cfg:       cfg,
		callbacks: callbacks,
		logger:    defaultLogger(logger),
		argv0:     argv0,
		args:      args,
		env:       env,
	}
}

// Start forks cfg.Workers worker processes and begins supervising them.
// It returns once every worker has been launched; crash detection and
// restart continue in background goroutines until [Master.Shutdown].
func (m *Master) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots = make([]*slot, m.cfg.Workers)
	for i := 0; i < m.cfg.Workers; i++ {
		if err := m.spawn(WorkerID(i)); err != nil {
			return fmt.Errorf("cluster: spawning worker %d: %w", i, err)
		}
	}
	return nil
}

// spawn launches (or relaunches) the process occupying slot wid. The
// caller must hold m.mu.
func (m *Master) spawn(wid WorkerID) error {
	mwRead, mwWrite, err := os.Pipe()
	if err != nil {
		return err
	}
	wmRead, wmWrite, err := os.Pipe()
	if err != nil {
		mwRead.Close()
		mwWrite.Close()
		return err
	}

	cmd := exec.Command(m.argv0, m.args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(append([]string{}, m.env...), fmt.Sprintf("%s=%d", workerEnvKey, int(wid)))
	cmd.ExtraFiles = []*os.File{mwRead, wmWrite}

	if err := cmd.Start(); err != nil {
		mwRead.Close()
		mwWrite.Close()
		wmRead.Close()
		wmWrite.Close()
		return err
	}
	mwRead.Close()
	wmWrite.Close()

	s := &slot{cmd: cmd, toWorker: mwWrite, fromWorker: wmRead, pid: cmd.Process.Pid, startedAt: time.Now()}
	m.slots[wid] = s

	go m.readLoop(wid, s)
	go m.waitLoop(wid, s)

	if m.callbacks.Process != nil {
		m.callbacks.Process(wid, s.pid, ProcessStart)
	}
	return nil
}

// readLoop drains frames sent by the worker in slot wid until its pipe
// is closed, invoking Callbacks.Message for each.
func (m *Master) readLoop(wid WorkerID, s *slot) {
	fr := newFrameReader(s.fromWorker)
	maxMessage := clampMaxMessage(m.cfg)
	for {
		pid, payload, quit, err := fr.next(maxMessage)
		if err != nil {
			if !errors.Is(err, io.EOF) && m.callbacks.Error != nil {
				m.callbacks.Error(wid, err)
			}
			return
		}
		if m.callbacks.Message != nil {
			m.callbacks.Message(wid, pid, payload)
		}
		if quit {
			return
		}
	}
}

// waitLoop blocks on the worker's exit, then applies spec.md §4.12's
// crash-restart decision: SIGINT propagates to the whole master, a crash
// after >= MinUptimeForRestart respawns the same slot, and a crash before
// that threshold is a crash loop that fails the whole cluster.
func (m *Master) waitLoop(wid WorkerID, s *slot) {
	err := s.cmd.Wait()

	s.mu.Lock()
	s.stopped = true
	s.fromWorker.Close()
	s.toWorker.Close()
	uptime := time.Since(s.startedAt)
	pid := s.pid
	s.mu.Unlock()

	if m.callbacks.Process != nil {
		m.callbacks.Process(wid, pid, ProcessStop)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closing {
		return
	}

	if exitedOnSIGINT(err) {
		m.closing = true
		if m.callbacks.Failure != nil {
			m.callbacks.Failure(wid, "worker received SIGINT")
		}
		return
	}

	if !m.cfg.Restart {
		return
	}

	if uptime >= m.cfg.MinUptimeForRestart {
		if err := m.spawn(wid); err != nil && m.callbacks.Error != nil {
			m.callbacks.Error(wid, err)
		}
		return
	}

	m.failed = true
	m.closing = true
	if m.callbacks.Failure != nil {
		m.callbacks.Failure(wid, "crash loop: worker exited after only "+uptime.String())
	}
}

// Send implements send(worker_id, payload): deliver payload to the
// worker occupying slot wid.
func (m *Master) Send(wid WorkerID, payload []byte) error {
	return m.send(wid, 0, payload, false)
}

// SendPID implements send(worker_id, pid, payload): like [Master.Send]
// but only delivers if the slot's current process still has pid, guarding
// against a message racing a respawn.
func (m *Master) SendPID(wid WorkerID, pid int, payload []byte) error {
	m.mu.Lock()
	if int(wid) < 0 || int(wid) >= len(m.slots) || m.slots[wid] == nil {
		m.mu.Unlock()
		return fmt.Errorf("cluster: no such worker %d", wid)
	}
	s := m.slots[wid]
	m.mu.Unlock()

	s.mu.Lock()
	current := s.pid
	s.mu.Unlock()
	if current != pid {
		return fmt.Errorf("cluster: worker %d pid changed (wanted %d, have %d)", wid, pid, current)
	}
	return m.send(wid, int32(pid), payload, false)
}

func (m *Master) send(wid WorkerID, pid int32, payload []byte, quit bool) error {
	m.mu.Lock()
	if int(wid) < 0 || int(wid) >= len(m.slots) || m.slots[wid] == nil {
		m.mu.Unlock()
		return fmt.Errorf("cluster: no such worker %d", wid)
	}
	s := m.slots[wid]
	m.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return fmt.Errorf("cluster: worker %d is not running", wid)
	}
	return writeFrame(s.toWorker, pid, payload, quit)
}

// Broadcast implements broadcast(worker_id, payload): deliver payload to
// every currently running worker, returning the first error encountered
// while still attempting delivery to the rest.
func (m *Master) Broadcast(payload []byte) error {
	m.mu.Lock()
	n := len(m.slots)
	m.mu.Unlock()

	var first error
	for i := 0; i < n; i++ {
		if err := m.send(WorkerID(i), 0, payload, false); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Shutdown sends a quit frame to every worker and waits up to
// cfg.ShutdownFlush for them to exit gracefully before returning; workers
// still alive past the deadline are left to the caller to SIGKILL.
func (m *Master) Shutdown() {
	m.mu.Lock()
	m.closing = true
	slots := append([]*slot{}, m.slots...)
	m.mu.Unlock()

	for i, s := range slots {
		if s == nil {
			continue
		}
		_ = m.send(WorkerID(i), 0, nil, true)
	}

	deadline := time.Now().Add(m.cfg.ShutdownFlush)
	for _, s := range slots {
		if s == nil {
			continue
		}
		for time.Now().Before(deadline) {
			s.mu.Lock()
			stopped := s.stopped
			s.mu.Unlock()
			if stopped {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// Failed reports whether the cluster gave up after a crash loop, per
// spec.md §4.12's "terminate the master with FAILURE".
func (m *Master) Failed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failed
}
