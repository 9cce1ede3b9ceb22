package db

import (
	"fmt"
	"log"

	"github.com/omnikdao/governance/internal/chain"
)

const replayBatchSize = 500

// Replay re-applies every stored call to c at its original position and returns how
// many were applied, then mines up to the stored height. A call that fails on
// replay means the stored log and the genesis have diverged.
func (d *DB) Replay(c *chain.Chain) (int, error) {
	var (
		position uint64
		count    int
	)

	for {
		txs, err := d.TxDB.GetTxs(position, replayBatchSize)
		if err != nil {
			return count, err
		}

		for _, tx := range txs {
			_, err := c.Replay(tx.Position, tx.From, tx.To, tx.Value, tx.Data)
			if err != nil {
				return count, fmt.Errorf("failed to replay %s at %d: %w", tx.Hash.Hex(), tx.Position, err)
			}

			position = tx.Position
			count++
		}

		if len(txs) < replayBatchSize {
			break
		}
	}

	if count > 0 {
		log.Default().Printf("replayed %d calls up to position %d\n", count, position)
	}

	height, err := d.HeightDB.Height()
	if err != nil {
		return count, err
	}

	if h := c.Height(); height > h {
		_, err = c.Mine(height - h)
		if err != nil {
			return count, fmt.Errorf("failed to restore height %d: %w", height, err)
		}
	}

	return count, nil
}
