// SPDX-License-Identifier: GPL-3.0-or-later

package cluster_test

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/anyks-go/awh/internal/cluster"
	"github.com/anyks-go/awh/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain lets this same test binary re-exec itself as a cluster worker:
// the master under test launches os.Args[0] with the worker-slot env var
// set, and the re-exec'd process must behave as a worker instead of
// running the package's tests again.
func TestMain(m *testing.M) {
	if id, ok := cluster.WorkerIndexFromEnv(); ok {
		runAsTestWorker(id)
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func runAsTestWorker(id cluster.WorkerID) {
	cfg := settings.Cluster{MaxMessage: 1 << 20}
	if os.Getenv("AWH_TEST_WORKER_MODE") == "crash-immediately" {
		os.Exit(1)
	}
	var w *cluster.Worker
	w = cluster.NewWorker(id, cfg, cluster.WorkerCallbacks{
		Message: func(payload []byte) { w.Send(payload) },
	}, nil)
	w.Run()
}

func TestMasterEchoesMessageThroughWorker(t *testing.T) {
	var mu sync.Mutex
	var got []byte
	msgCh := make(chan struct{}, 1)
	startCh := make(chan struct{}, 1)

	cfg := settings.Cluster{Workers: 1, Restart: false, MinUptimeForRestart: time.Hour, MaxMessage: 1 << 20, ShutdownFlush: time.Second}
	m := cluster.NewMaster(cfg, cluster.Callbacks{
		Process: func(wid cluster.WorkerID, pid int, status cluster.ProcessStatus) {
			if status == cluster.ProcessStart {
				select {
				case startCh <- struct{}{}:
				default:
				}
			}
		},
		Message: func(wid cluster.WorkerID, pid int, payload []byte) {
			mu.Lock()
			got = append([]byte{}, payload...)
			mu.Unlock()
			select {
			case msgCh <- struct{}{}:
			default:
			}
		},
	}, os.Args[0], []string{"-test.run=^$"}, os.Environ(), nil)

	require.NoError(t, m.Start())
	defer m.Shutdown()

	select {
	case <-startCh:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never reported start")
	}

	require.NoError(t, m.Send(0, []byte("ping")))

	select {
	case <-msgCh:
	case <-time.After(5 * time.Second):
		t.Fatal("master never received echoed message")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "ping", string(got))
}

func TestMasterDetectsCrashLoopAndReportsFailure(t *testing.T) {
	failureCh := make(chan string, 1)

	cfg := settings.Cluster{Workers: 1, Restart: true, MinUptimeForRestart: time.Hour, MaxMessage: 1 << 20, ShutdownFlush: 100 * time.Millisecond}
	env := append(append([]string{}, os.Environ()...), "AWH_TEST_WORKER_MODE=crash-immediately")
	m := cluster.NewMaster(cfg, cluster.Callbacks{
		Failure: func(wid cluster.WorkerID, reason string) {
			select {
			case failureCh <- reason:
			default:
			}
		},
	}, os.Args[0], []string{"-test.run=^$"}, env, nil)

	require.NoError(t, m.Start())

	select {
	case reason := <-failureCh:
		assert.Contains(t, reason, "crash loop")
	case <-time.After(5 * time.Second):
		t.Fatal("master never reported crash-loop failure")
	}
	assert.True(t, m.Failed())
}
