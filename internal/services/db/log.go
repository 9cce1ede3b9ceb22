package db

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/omnikdao/governance/pkg/governor"
)

// LogDB stores the events emitted by committed calls
type LogDB struct {
	suffix string
	db     *sql.DB
	rdb    *sql.DB
}

func NewLogDB(db, rdb *sql.DB, name string) *LogDB {
	return &LogDB{
		suffix: name,
		db:     db,
		rdb:    rdb,
	}
}

func (db *LogDB) tableName() string {
	return fmt.Sprintf("t_logs_%s", db.suffix)
}

// CreateLogTable creates a table to store logs in the given db
func (db *LogDB) CreateLogTable() error {
	_, err := db.db.Exec(fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS t_logs_%s(
		tx_hash text NOT NULL,
		log_index integer NOT NULL,
		position integer NOT NULL,
		address text NOT NULL,
		name text NOT NULL,
		topic text NOT NULL,
		data jsonb DEFAULT NULL,
		created_at timestamp NOT NULL,
		PRIMARY KEY (tx_hash, log_index)
	);
	`, db.suffix))

	return err
}

// CreateLogTableIndexes creates the indexes for logs in the given db
func (db *LogDB) CreateLogTableIndexes() error {
	_, err := db.db.Exec(fmt.Sprintf(`
	CREATE INDEX IF NOT EXISTS idx_logs_%s_position ON t_logs_%s (position);
	`, db.suffix, db.suffix))
	if err != nil {
		return err
	}

	// filtering by emitter and event
	_, err = db.db.Exec(fmt.Sprintf(`
	CREATE INDEX IF NOT EXISTS idx_logs_%s_address_name_position ON t_logs_%s (address, name, position);
	`, db.suffix, db.suffix))
	if err != nil {
		return err
	}

	return nil
}

func (db *LogDB) addLogs(e execer, logs []governor.Log) error {
	t := time.Now().UTC()

	for _, l := range logs {
		data, err := json.Marshal(l.Data)
		if err != nil {
			return fmt.Errorf("failed to encode %s log: %w", l.Name, err)
		}

		_, err = e.Exec(fmt.Sprintf(`
		INSERT INTO t_logs_%s (tx_hash, log_index, position, address, name, topic, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (tx_hash, log_index) DO NOTHING
		`, db.suffix), l.TxHash.Hex(), l.Index, l.Position, l.Address.Hex(), l.Name, l.Topic.Hex(), string(data), t)
		if err != nil {
			return err
		}
	}

	return nil
}

// AddLogs stores a list of logs
func (db *LogDB) AddLogs(logs []governor.Log) error {
	return db.addLogs(db.db, logs)
}

// GetLogs returns the logs an address emitted from position onwards, optionally
// filtered by event name
func (db *LogDB) GetLogs(address common.Address, name string, position uint64, limit, offset int) ([]*governor.Log, error) {
	query := fmt.Sprintf(`
	SELECT tx_hash, log_index, position, address, name, topic, data
	FROM t_logs_%s
	WHERE address = $1 AND position >= $2
	`, db.suffix)
	args := []any{address.Hex(), position}

	if name != "" {
		query += " AND name = $3 ORDER BY position ASC, log_index ASC LIMIT $4 OFFSET $5"
		args = append(args, name, limit, offset)
	} else {
		query += " ORDER BY position ASC, log_index ASC LIMIT $3 OFFSET $4"
		args = append(args, limit, offset)
	}

	rows, err := db.rdb.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []*governor.Log{}
	for rows.Next() {
		var (
			l                 governor.Log
			hash, addr, topic string
			data              []byte
		)

		err = rows.Scan(&hash, &l.Index, &l.Position, &addr, &l.Name, &topic, &data)
		if err != nil {
			return nil, err
		}

		l.TxHash = common.HexToHash(hash)
		l.Address = common.HexToAddress(addr)
		l.Topic = common.HexToHash(topic)

		if len(data) > 0 {
			dec := json.NewDecoder(bytes.NewReader(data))
			dec.UseNumber()

			err = dec.Decode(&l.Data)
			if err != nil {
				return nil, err
			}
		}

		logs = append(logs, &l)
	}

	return logs, rows.Err()
}
