package db

import (
	"database/sql"
	"fmt"
	"time"
)

// HeightDB keeps the height reached by mining empty positions, which the call log
// alone cannot restore
type HeightDB struct {
	suffix string
	db     *sql.DB
	rdb    *sql.DB
}

func NewHeightDB(db, rdb *sql.DB, name string) *HeightDB {
	return &HeightDB{
		suffix: name,
		db:     db,
		rdb:    rdb,
	}
}

func (db *HeightDB) tableName() string {
	return fmt.Sprintf("t_height_%s", db.suffix)
}

// CreateHeightTable creates a single row table to store the mined height in the given db
func (db *HeightDB) CreateHeightTable() error {
	_, err := db.db.Exec(fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS t_height_%s(
		id integer NOT NULL PRIMARY KEY,
		height bigint NOT NULL,
		updated_at timestamp NOT NULL
	);
	`, db.suffix))

	return err
}

func (db *HeightDB) CreateHeightTableIndexes() error {
	return nil
}

func (db *HeightDB) setHeight(e execer, height uint64) error {
	_, err := e.Exec(fmt.Sprintf(`
	INSERT INTO t_height_%s (id, height, updated_at)
	VALUES (1, $1, $2)
	ON CONFLICT (id) DO UPDATE SET
		height = excluded.height,
		updated_at = excluded.updated_at
	`, db.suffix), height, time.Now().UTC())

	return err
}

// SetHeight stores the mined height
func (db *HeightDB) SetHeight(height uint64) error {
	return db.setHeight(db.db, height)
}

// Height returns the stored mined height, 0 if nothing was mined
func (db *HeightDB) Height() (uint64, error) {
	var height uint64
	err := db.rdb.QueryRow(fmt.Sprintf(`
	SELECT height FROM t_height_%s WHERE id = 1
	`, db.suffix)).Scan(&height)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return height, nil
}
