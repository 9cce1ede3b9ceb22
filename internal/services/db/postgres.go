package db

import (
	"database/sql"
	"fmt"
	"log"
	"math/big"

	_ "github.com/lib/pq"
	"github.com/omnikdao/governance/internal/chain"
	"github.com/omnikdao/governance/internal/config"
)

// NewPostgresDB connects a writer to host and a reader to rhost
func NewPostgresDB(chainID *big.Int, username, password, name, host, rhost string) (*DB, error) {
	connStr := fmt.Sprintf("user=%s password=%s dbname=%s host=%s port=5432 sslmode=disable", username, password, name, host)
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	rconnStr := fmt.Sprintf("user=%s password=%s dbname=%s host=%s port=5432 sslmode=disable", username, password, name, rhost)
	rdb, err := sql.Open("postgres", rconnStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return newDB(chainID, config.DBDriverPostgres, db, rdb)
}

// Migrate copies the call log and the mined height into dst in batches. Logs and
// proposals are not copied, they are rebuilt when dst is replayed.
func (d *DB) Migrate(dst *DB, batchSize int) error {
	log.Default().Println("starting migration...")

	rows, err := countRows(d.rdb, d.TxDB.tableName())
	if err != nil {
		return err
	}

	var position uint64
	migrated := 0
	for {
		log.Default().Println(migrated, "/", rows, "...")

		txs, err := d.TxDB.GetTxs(position, batchSize)
		if err != nil {
			return err
		}

		for _, tx := range txs {
			err := dst.TxDB.AddTx(&chain.Receipt{
				Position: tx.Position,
				Hash:     tx.Hash,
				From:     tx.From,
				To:       tx.To,
				Value:    tx.Value,
				Data:     tx.Data,
			})
			if err != nil {
				return err
			}

			position = tx.Position
		}

		migrated += len(txs)

		if len(txs) < batchSize {
			// If we fetched fewer rows than the batch size, we've fetched all rows.
			break
		}
	}

	log.Default().Println(migrated, "/", rows)

	height, err := d.HeightDB.Height()
	if err != nil {
		return err
	}

	if height > 0 {
		return dst.HeightDB.SetHeight(height)
	}

	return nil
}

func countRows(db *sql.DB, tableName string) (int, error) {
	var count int

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", tableName)
	err := db.QueryRow(query).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}
