package queue

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/omnikdao/governance/internal/chain"
	"github.com/omnikdao/governance/internal/config"
	"github.com/omnikdao/governance/internal/deploy"
	"github.com/omnikdao/governance/pkg/contracts"
	"github.com/omnikdao/governance/pkg/governor"
	"github.com/stretchr/testify/require"
)

var errExpected = errors.New("expected error")

type testMessager struct {
	mu     sync.Mutex
	errors []error
}

func (m *testMessager) Notify(ctx context.Context, message string) error {
	return nil
}

func (m *testMessager) NotifyWarning(ctx context.Context, errorMessage error) error {
	return nil
}

func (m *testMessager) NotifyError(ctx context.Context, errorMessage error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, errorMessage)
	return nil
}

func (m *testMessager) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

type testProcessor struct {
	mu    sync.Mutex
	count int
	done  chan struct{}
	total int
}

func (p *testProcessor) Process(message governor.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.count++
	if p.count == p.total {
		close(p.done)
	}

	if message.ID == "invalid" {
		return errExpected
	}

	return nil
}

func TestProcessMessages(t *testing.T) {
	t.Run("valid messages", func(t *testing.T) {
		m := &testMessager{}
		q := NewService(10, 3, context.Background(), m)
		p := &testProcessor{done: make(chan struct{}), total: 5}

		for i := 0; i < 5; i++ {
			q.Enqueue(governor.Message{ID: "valid", CreatedAt: time.Now()})
		}

		go func() {
			<-p.done
			q.Close()
		}()

		require.NoError(t, q.Start(p))
		require.Equal(t, 5, p.count)
		require.Equal(t, 0, m.count())
	})

	t.Run("invalid message is retried then reported", func(t *testing.T) {
		m := &testMessager{}
		q := NewService(10, 3, context.Background(), m)

		// 2 valid, 1 invalid processed 1 + 3 retries
		p := &testProcessor{done: make(chan struct{}), total: 6}

		q.Enqueue(governor.Message{ID: "valid"})
		q.Enqueue(governor.Message{ID: "invalid"})
		q.Enqueue(governor.Message{ID: "valid"})

		go func() {
			<-p.done
			// let the last failure reach the messager
			for m.count() == 0 {
				time.Sleep(10 * time.Millisecond)
			}
			q.Close()
		}()

		require.NoError(t, q.Start(p))
		require.Equal(t, 6, p.count)
		require.Equal(t, 1, m.count())
		require.ErrorIs(t, m.errors[0], errExpected)
	})

	t.Run("context cancels the loop", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		q := NewService(1, 3, ctx, nil)

		cancel()
		require.ErrorIs(t, q.Start(&testProcessor{done: make(chan struct{})}), context.Canceled)
	})
}

func deployed(t *testing.T) *deploy.Deployment {
	g, err := config.DefaultGenesis()
	require.NoError(t, err)

	d, err := deploy.Deploy(chain.New(big.NewInt(g.ChainID)), g)
	require.NoError(t, err)

	return d
}

func TestTxService(t *testing.T) {
	d := deployed(t)
	s := NewTxService(d.Chain, 3)

	voter, err := d.Account("voter1")
	require.NoError(t, err)

	data, err := contracts.Calldata(contracts.TokenContract, "delegate", voter)
	require.NoError(t, err)

	msg, txm := governor.NewTxMessage(voter, d.Token.Address(), nil, data)
	require.NoError(t, s.Process(*msg))

	res := <-txm.Reply
	require.NoError(t, res.Err)
	require.Equal(t, uint64(14), res.Position)
	require.Equal(t, d.Chain.Height(), res.Position)
	require.NotEmpty(t, res.Logs)
	require.Equal(t, "50000000000000000000", d.Token.GetVotes(voter).String())

	// a reverting call is answered and not retried
	release, err := contracts.Calldata(contracts.TreasuryContract, "releaseFunds")
	require.NoError(t, err)

	msg, txm = governor.NewTxMessage(voter, d.Treasury.Address(), nil, release)
	require.NoError(t, s.Process(*msg))

	res = <-txm.Reply
	require.ErrorIs(t, res.Err, governor.ErrUnauthorized)
	require.Equal(t, uint64(14), d.Chain.Height())

	require.ErrorIs(t, s.Process(governor.Message{ID: "bogus", Message: "bogus"}), ErrInvalidMessage)
}

type failingRecorder struct{}

func (failingRecorder) Record(r *chain.Receipt) error {
	return errExpected
}

func (failingRecorder) RecordHeight(height uint64) error {
	return errExpected
}

func TestTxServiceRetriesRecordFailures(t *testing.T) {
	d := deployed(t)
	d.Chain.SetRecorder(failingRecorder{})
	s := NewTxService(d.Chain, 1)

	voter, err := d.Account("voter1")
	require.NoError(t, err)

	data, err := contracts.Calldata(contracts.TokenContract, "delegate", voter)
	require.NoError(t, err)

	msg, txm := governor.NewTxMessage(voter, d.Token.Address(), nil, data)

	// first attempt is left for a retry without a reply
	require.ErrorIs(t, s.Process(*msg), chain.ErrRecordFailed)
	require.Len(t, txm.Reply, 0)

	msg.RetryCount = 1
	require.ErrorIs(t, s.Process(*msg), chain.ErrRecordFailed)

	res := <-txm.Reply
	require.ErrorIs(t, res.Err, errExpected)
	require.Equal(t, uint64(13), d.Chain.Height())
}

func TestEnqueueStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewService(1, 3, ctx, nil)

	q.Enqueue(governor.Message{ID: "first"})

	// the buffer is full and nothing consumes it
	q.requeue(governor.Message{ID: "second"})

	done := make(chan struct{})
	go func() {
		q.Enqueue(governor.Message{ID: "third"})
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue still blocked after the context was canceled")
	}

	require.Len(t, q.queue, 1)
}
