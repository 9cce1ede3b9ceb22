package db

import (
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/omnikdao/governance/internal/chain"
	"github.com/omnikdao/governance/pkg/governor"
)

// TxDB is the ordered log of committed external calls, the source state is rebuilt from
type TxDB struct {
	suffix string
	db     *sql.DB
	rdb    *sql.DB
}

func NewTxDB(db, rdb *sql.DB, name string) *TxDB {
	return &TxDB{
		suffix: name,
		db:     db,
		rdb:    rdb,
	}
}

func (db *TxDB) tableName() string {
	return fmt.Sprintf("t_txs_%s", db.suffix)
}

// CreateTxTable creates a table to store calls in the given db
func (db *TxDB) CreateTxTable() error {
	_, err := db.db.Exec(fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS t_txs_%s(
		position integer NOT NULL PRIMARY KEY,
		tx_hash text NOT NULL,
		from_addr text NOT NULL,
		to_addr text NOT NULL,
		value text NOT NULL,
		data text NOT NULL,
		created_at timestamp NOT NULL
	);
	`, db.suffix))

	return err
}

// CreateTxTableIndexes creates the indexes for calls in the given db
func (db *TxDB) CreateTxTableIndexes() error {
	_, err := db.db.Exec(fmt.Sprintf(`
	CREATE INDEX IF NOT EXISTS idx_txs_%s_tx_hash ON t_txs_%s (tx_hash);
	`, db.suffix, db.suffix))
	if err != nil {
		return err
	}

	_, err = db.db.Exec(fmt.Sprintf(`
	CREATE INDEX IF NOT EXISTS idx_txs_%s_from_addr ON t_txs_%s (from_addr);
	`, db.suffix, db.suffix))
	if err != nil {
		return err
	}

	return nil
}

func (db *TxDB) addTx(e execer, r *chain.Receipt) error {
	value := r.Value
	if value == nil {
		value = new(big.Int)
	}

	_, err := e.Exec(fmt.Sprintf(`
	INSERT INTO t_txs_%s (position, tx_hash, from_addr, to_addr, value, data, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (position) DO NOTHING
	`, db.suffix), r.Position, r.Hash.Hex(), r.From.Hex(), r.To.Hex(), value.String(), hexutil.Encode(r.Data), time.Now().UTC())

	return err
}

// AddTx stores a single committed call
func (db *TxDB) AddTx(r *chain.Receipt) error {
	return db.addTx(db.db, r)
}

// GetTxs returns up to limit calls committed after position, in order
func (db *TxDB) GetTxs(position uint64, limit int) ([]*governor.Tx, error) {
	rows, err := db.rdb.Query(fmt.Sprintf(`
	SELECT position, tx_hash, from_addr, to_addr, value, data, created_at
	FROM t_txs_%s
	WHERE position > $1
	ORDER BY position ASC
	LIMIT $2
	`, db.suffix), position, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := []*governor.Tx{}
	for rows.Next() {
		var (
			tx       governor.Tx
			hash     string
			from, to string
			value    string
			data     string
		)

		err = rows.Scan(&tx.Position, &hash, &from, &to, &value, &data, &tx.CreatedAt)
		if err != nil {
			return nil, err
		}

		tx.Hash = common.HexToHash(hash)
		tx.From = common.HexToAddress(from)
		tx.To = common.HexToAddress(to)

		v, ok := new(big.Int).SetString(value, 10)
		if !ok {
			return nil, fmt.Errorf("invalid value %q at position %d", value, tx.Position)
		}
		tx.Value = v

		tx.Data, err = hexutil.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("invalid data at position %d: %w", tx.Position, err)
		}

		txs = append(txs, &tx)
	}

	return txs, rows.Err()
}

// LatestPosition returns the position of the last stored call, 0 if there is none
func (db *TxDB) LatestPosition() (uint64, error) {
	var position sql.NullInt64
	err := db.rdb.QueryRow(fmt.Sprintf(`
	SELECT MAX(position) FROM t_txs_%s
	`, db.suffix)).Scan(&position)
	if err != nil {
		return 0, err
	}

	if !position.Valid {
		return 0, nil
	}

	return uint64(position.Int64), nil
}
