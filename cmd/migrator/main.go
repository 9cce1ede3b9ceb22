package main

import (
	"context"
	"flag"
	"log"
	"math/big"

	"github.com/omnikdao/governance/internal/config"
	"github.com/omnikdao/governance/internal/services/db"
)

func main() {
	log.Default().Println("postgres to sqlite migration...")

	chainId := flag.Int("chain", 1337, "chain id")

	txBatch := flag.Int("txbatch", 1000, "tx batch size")

	env := flag.String("env", ".db.env", "path to .db.env file")

	dbpath := flag.String("dbpath", ".", "path to db")

	flag.Parse()

	chid := big.NewInt(int64(*chainId))

	ctx := context.Background()

	conf, err := config.NewDBConfig(ctx, *env)
	if err != nil {
		log.Fatal(err)
	}

	pqdb, err := db.NewPostgresDB(chid, conf.DBUser, conf.DBPassword, conf.DBName, conf.DBHost, conf.DBReaderHost)
	if err != nil {
		log.Fatal(err)
	}
	defer pqdb.Close()

	sdb, err := db.NewSQLiteDB(chid, *dbpath, chid.String())
	if err != nil {
		log.Fatal(err)
	}
	defer sdb.Close()

	err = pqdb.Migrate(sdb, *txBatch)
	if err != nil {
		log.Fatal(err)
	}

	log.Default().Println("migration completed")
}
