package queue

import (
	"errors"
	"fmt"

	"github.com/omnikdao/governance/internal/chain"
	"github.com/omnikdao/governance/pkg/governor"
)

var ErrInvalidMessage = errors.New("invalid queue message")

// TxService sequences external calls onto the chain one at a time
type TxService struct {
	chain      *chain.Chain
	maxRetries int
}

func NewTxService(c *chain.Chain, maxRetries int) *TxService {
	return &TxService{
		chain:      c,
		maxRetries: maxRetries,
	}
}

// Process applies a governor.TxMessage and replies with its result. Calls that revert
// are answered and not retried, a failure to record the call is retried until the
// message runs out of attempts.
func (s *TxService) Process(message governor.Message) error {
	txm, ok := message.Message.(governor.TxMessage)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidMessage, message.ID)
	}

	r, err := s.chain.Send(txm.From, txm.To, txm.Value, txm.Data)
	if err != nil {
		if errors.Is(err, chain.ErrRecordFailed) && message.RetryCount < s.maxRetries {
			return err
		}

		reply(txm, governor.TxResult{Err: err})

		if errors.Is(err, chain.ErrRecordFailed) {
			return err
		}

		return nil
	}

	reply(txm, governor.TxResult{
		Position: r.Position,
		Hash:     r.Hash,
		Return:   r.Return,
		Logs:     r.Logs,
	})

	return nil
}

func reply(txm governor.TxMessage, res governor.TxResult) {
	if txm.Reply == nil {
		return
	}

	select {
	case txm.Reply <- res:
	default:
	}
}
