package governance

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/omnikdao/governance/internal/chain"
	com "github.com/omnikdao/governance/internal/common"
	"github.com/omnikdao/governance/internal/deploy"
	"github.com/omnikdao/governance/internal/services/db"
	"github.com/omnikdao/governance/pkg/governor"
	"github.com/omnikdao/governance/pkg/queue"
)

const (
	notifyBufferSize = 100
	notifyRetries    = 3
)

// Indexer keeps the proposal table in step with the governor. It runs as a chain
// subscriber, after commit and before the next call, so it reads contracts directly.
// Webhook messages are queued and sent by Start, never while the chain is held.
type Indexer struct {
	ctx context.Context
	d   *deploy.Deployment
	db  *db.DB
	wm  governor.WebhookMessager
	nq  *queue.Service

	mu sync.Mutex
	// last indexed state of every proposal that can still change
	live map[common.Hash]governor.ProposalState
}

func NewIndexer(ctx context.Context, d *deploy.Deployment, db *db.DB, wm governor.WebhookMessager) *Indexer {
	return &Indexer{
		ctx:  ctx,
		d:    d,
		db:   db,
		wm:   wm,
		nq:   queue.NewService(notifyBufferSize, notifyRetries, ctx, nil),
		live: map[common.Hash]governor.ProposalState{},
	}
}

// Start sends queued webhook messages until the context is done
func (i *Indexer) Start() error {
	return i.nq.Start(i)
}

// Process sends one queued webhook message, it implements queue.Processor
func (i *Indexer) Process(message governor.Message) error {
	if i.wm == nil {
		return nil
	}

	var err error
	switch m := message.Message.(type) {
	case string:
		err = i.wm.Notify(i.ctx, m)
	case error:
		err = i.wm.NotifyError(i.ctx, m)
	default:
		return queue.ErrInvalidMessage
	}

	if err != nil {
		log.Default().Printf("failed to notify (attempt %d): %v\n", message.RetryCount+1, err)
	}

	return err
}

// Handle indexes the proposals touched by r and any proposal whose state moved with the position
func (i *Indexer) Handle(r *chain.Receipt) {
	dirty := map[common.Hash]bool{}

	for _, l := range r.Logs {
		if l.Address == i.d.Governor.Address() {
			if id, ok := proposalIDFromLog(l); ok {
				dirty[id] = true
			}
		}

		if !r.Replayed {
			i.notify(l)
		}
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	i.refresh(dirty, r.Position)
}

// Refresh re-indexes proposals whose state changed without a call, after the height
// was advanced by mining. It must run inside a chain view.
func (i *Indexer) Refresh(position uint64) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.refresh(map[common.Hash]bool{}, position)
}

func (i *Indexer) refresh(dirty map[common.Hash]bool, position uint64) {
	for id, last := range i.live {
		st, err := i.d.Governor.State(id)
		if err != nil || st != last {
			dirty[id] = true
		}
	}

	for id := range dirty {
		err := i.index(id, position)
		if err != nil {
			log.Default().Printf("failed to index proposal %s: %v\n", id.Hex(), err)
			i.enqueue(id.Hex(), err)
		}
	}
}

func (i *Indexer) index(id common.Hash, position uint64) error {
	p, err := i.d.Governor.Proposal(id)
	if err != nil {
		return err
	}

	st, err := i.d.Governor.State(id)
	if err != nil {
		return err
	}

	err = i.db.ProposalDB.UpsertProposal(governor.NewProposalSummary(p, st, position))
	if err != nil {
		return err
	}

	if st.Terminal() {
		delete(i.live, id)
		return nil
	}

	i.live[id] = st
	return nil
}

func (i *Indexer) notify(l governor.Log) {
	if i.wm == nil {
		return
	}

	var msg string
	switch l.Name {
	case governor.EventName(governor.EventProposalExecuted):
		id, _ := proposalIDFromLog(l)
		msg = fmt.Sprintf("proposal %s executed", com.ShortID(id))
	case governor.EventName(governor.EventFundsReleased):
		amount, _ := l.Data["amount"].(*big.Int)
		beneficiary, _ := l.Data["beneficiary"].(common.Address)
		msg = fmt.Sprintf("treasury released %s ETH to %s", com.FormatEther(amount), beneficiary.Hex())
	default:
		return
	}

	i.enqueue(l.TxHash.Hex(), msg)
}

// enqueue hands a message to the webhook queue without waiting, it is dropped when the queue is full
func (i *Indexer) enqueue(id string, message any) {
	if i.wm == nil {
		return
	}

	ok := i.nq.TryEnqueue(governor.Message{
		ID:        id,
		CreatedAt: time.Now(),
		Message:   message,
	})
	if !ok {
		log.Default().Println("webhook queue full, dropping message: ", message)
	}
}

func proposalIDFromLog(l governor.Log) (common.Hash, bool) {
	v, ok := l.Data["proposalId"].(*big.Int)
	if !ok {
		return common.Hash{}, false
	}

	return common.BigToHash(v), true
}
