package db

import (
	"database/sql"
	"fmt"
	"log"
	"math/big"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/omnikdao/governance/internal/chain"
	"github.com/omnikdao/governance/internal/config"
	"github.com/omnikdao/governance/internal/storage"
)

const (
	dbBaseFolder   = "data"
	dbConfigString = "cache=private&_journal=WAL&mode=rwc&_txlock=immediate&_busy_timeout=10000"
)

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

type DB struct {
	chainID *big.Int
	driver  string
	mu      sync.Mutex
	db      *sql.DB
	rdb     *sql.DB

	TxDB       *TxDB
	LogDB      *LogDB
	ProposalDB *ProposalDB
	HeightDB   *HeightDB
}

// New opens the database selected by the configured driver
func New(chainID *big.Int, cfg *config.DBConfig, basePath string) (*DB, error) {
	switch cfg.DBDriver {
	case config.DBDriverPostgres:
		return NewPostgresDB(chainID, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBHost, cfg.DBReaderHost)
	case config.DBDriverSQLite, "":
		return NewSQLiteDB(chainID, basePath, cfg.DBName)
	}

	return nil, fmt.Errorf("unsupported db driver %q", cfg.DBDriver)
}

// NewSQLiteDB opens or creates the sqlite database at basePath/data/name.db
func NewSQLiteDB(chainID *big.Int, basePath, name string) (*DB, error) {
	folderPath := fmt.Sprintf("%s/%s", basePath, dbBaseFolder)
	path := fmt.Sprintf("%s/%s.db", folderPath, name)

	// check if directory exists
	if !storage.Exists(folderPath) {
		err := storage.CreateDir(folderPath)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", path, dbConfigString))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(1)

	return newDB(chainID, config.DBDriverSQLite, db, db)
}

func newDB(chainID *big.Int, driver string, db, rdb *sql.DB) (*DB, error) {
	suffix := chainID.String()

	d := &DB{
		chainID:    chainID,
		driver:     driver,
		db:         db,
		rdb:        rdb,
		TxDB:       NewTxDB(db, rdb, suffix),
		LogDB:      NewLogDB(db, rdb, suffix),
		ProposalDB: NewProposalDB(db, rdb, suffix),
		HeightDB:   NewHeightDB(db, rdb, suffix),
	}

	err := d.ensureTable(d.TxDB.tableName(), d.TxDB.CreateTxTable, d.TxDB.CreateTxTableIndexes)
	if err != nil {
		return nil, err
	}

	err = d.ensureTable(d.LogDB.tableName(), d.LogDB.CreateLogTable, d.LogDB.CreateLogTableIndexes)
	if err != nil {
		return nil, err
	}

	err = d.ensureTable(d.ProposalDB.tableName(), d.ProposalDB.CreateProposalTable, d.ProposalDB.CreateProposalTableIndexes)
	if err != nil {
		return nil, err
	}

	err = d.ensureTable(d.HeightDB.tableName(), d.HeightDB.CreateHeightTable, d.HeightDB.CreateHeightTableIndexes)
	if err != nil {
		return nil, err
	}

	return d, nil
}

func (d *DB) ensureTable(name string, create, indexes func() error) error {
	exists, err := d.TableExists(name)
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	log.Default().Println("creating table: ", name)

	err = create()
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}

	err = indexes()
	if err != nil {
		return fmt.Errorf("failed to index %s: %w", name, err)
	}

	return nil
}

// TableExists checks if a table exists in the database
func (d *DB) TableExists(name string) (bool, error) {
	if d.driver == config.DBDriverPostgres {
		var exists bool
		err := d.db.QueryRow(`
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		);
		`, name).Scan(&exists)
		if err != nil {
			return false, err
		}

		return exists, nil
	}

	row := d.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=$1", name)
	var n string
	err := row.Scan(&n)
	if err != nil {
		if err == sql.ErrNoRows {
			// Table does not exist
			return false, nil
		}
		// A database error occurred
		return false, err
	}

	return true, nil
}

// Record stores a committed call and its logs in one database transaction.
// It implements chain.Recorder, so a failed write aborts the call.
func (d *DB) Record(r *chain.Receipt) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}

	err = d.TxDB.addTx(tx, r)
	if err != nil {
		tx.Rollback()
		return err
	}

	err = d.LogDB.addLogs(tx, r.Logs)
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// RecordHeight stores the height reached by mining. It implements chain.Recorder.
func (d *DB) RecordHeight(height uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.HeightDB.SetHeight(height)
}

// Close closes the writer and, if different, the reader connection
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.rdb != d.db {
		err := d.rdb.Close()
		if err != nil {
			return err
		}
	}

	return d.db.Close()
}
