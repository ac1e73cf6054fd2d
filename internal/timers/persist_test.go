// SPDX-License-Identifier: GPL-3.0-or-later

package timers_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/anyks-go/awh/internal/broker"
	"github.com/anyks-go/awh/internal/reactor"
	"github.com/anyks-go/awh/internal/timers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLivenessDriverSendsPingAfterInterval(t *testing.T) {
	base := reactor.New()
	ctx, cancel := context.WithCancel(context.Background())
	go base.Run(ctx)
	defer cancel()

	var mu sync.Mutex
	var pinged broker.ID
	pingCh := make(chan struct{}, 1)

	d := timers.NewLivenessDriver(base, 5*time.Millisecond, 50*time.Millisecond, func(id broker.ID, payload []byte) error {
		mu.Lock()
		pinged = id
		mu.Unlock()
		select {
		case pingCh <- struct{}{}:
		default:
		}
		return nil
	}, nil)

	d.Track(broker.ID(7))
	defer d.Untrack(broker.ID(7))

	select {
	case <-pingCh:
	case <-time.After(2 * time.Second):
		t.Fatal("liveness driver never sent a ping")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, broker.ID(7), pinged)
}

func TestLivenessDriverTimesOutWithoutPong(t *testing.T) {
	base := reactor.New()
	ctx, cancel := context.WithCancel(context.Background())
	go base.Run(ctx)
	defer cancel()

	timeoutCh := make(chan broker.ID, 1)
	d := timers.NewLivenessDriver(base, 2*time.Millisecond, 5*time.Millisecond,
		func(id broker.ID, payload []byte) error { return nil },
		func(id broker.ID) { timeoutCh <- id },
	)

	d.Track(broker.ID(9))

	select {
	case id := <-timeoutCh:
		assert.Equal(t, broker.ID(9), id)
	case <-time.After(2 * time.Second):
		t.Fatal("liveness driver never timed out")
	}
}

func TestLivenessDriverNotePongMismatchIsIgnored(t *testing.T) {
	base := reactor.New()
	ctx, cancel := context.WithCancel(context.Background())
	go base.Run(ctx)
	defer cancel()

	d := timers.NewLivenessDriver(base, time.Hour, time.Hour,
		func(id broker.ID, payload []byte) error { return nil }, nil)
	d.Track(broker.ID(3))
	defer d.Untrack(broker.ID(3))

	require.NotPanics(t, func() {
		d.NotePong(broker.ID(3), []byte("not the right payload length"))
		d.NotePong(broker.ID(3), timers.PingPayload(broker.ID(99)))
	})
}

func TestPingPayloadRoundTripsBrokerID(t *testing.T) {
	payload := timers.PingPayload(broker.ID(123456))
	require.Len(t, payload, 8)
	assert.Equal(t, timers.PingPayload(broker.ID(123456)), payload)
	assert.NotEqual(t, timers.PingPayload(broker.ID(1)), payload)
}
