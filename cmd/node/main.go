//go:generate swagger generate spec

package main

import (
	"context"
	"flag"
	"log"
	"math/big"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/omnikdao/governance/internal/chain"
	"github.com/omnikdao/governance/internal/config"
	"github.com/omnikdao/governance/internal/deploy"
	"github.com/omnikdao/governance/internal/governance"
	"github.com/omnikdao/governance/internal/services/db"
	"github.com/omnikdao/governance/internal/services/webhook"
	"github.com/omnikdao/governance/pkg/queue"
	"github.com/omnikdao/governance/pkg/router"
)

// @title           Omnik DAO Governance API
// @version         1.0
// @description     This is a server which sequences governance calls and serves proposal, timelock and treasury state.

// @host      localhost:3000
// @BasePath  /

// @securityDefinitions.basic  Authorization Bearer
func main() {
	log.Default().Println("launching governance node...")

	env := flag.String("env", ".env", "path to .env file")

	confpath := flag.String("confpath", ".", "path to the folder containing genesis.json")

	port := flag.Int("port", 3000, "port to listen on")

	txqbf := flag.Int("buffer", 100, "tx queue buffer size (default: 100)")

	retries := flag.Int("retries", 3, "times a call is retried when it cannot be recorded (default: 3)")

	timeout := flag.Duration("timeout", 30*time.Second, "how long a caller waits for its call to be sequenced")

	dbpath := flag.String("dbpath", ".", "path to db")

	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conf, err := config.New(ctx, *env, *confpath)
	if err != nil {
		log.Fatal(err)
	}

	if conf.SentryURL != "" && conf.SentryURL != "x" {
		err = sentry.Init(sentry.ClientOptions{
			Dsn: conf.SentryURL,
			// Set TracesSampleRate to 1.0 to capture 100%
			// of transactions for performance monitoring.
			// We recommend adjusting this value in production,
			TracesSampleRate: 1.0,
		})
		if err != nil {
			log.Fatalf("sentry.Init: %s", err)
		}
		// Flush buffered events before the program terminates.
		defer sentry.Flush(2 * time.Second)
	}

	chid := big.NewInt(conf.Genesis.ChainID)

	log.Default().Println("node running for chain: ", chid.String())

	log.Default().Println("starting internal db service...")

	dbconf, err := config.NewDBConfig(ctx, "")
	if err != nil {
		log.Fatal(err)
	}

	d, err := db.New(chid, dbconf, *dbpath)
	if err != nil {
		log.Fatal(err)
	}
	defer d.Close()

	w := webhook.NewMessager(conf.DiscordURL, conf.Genesis.Governor.Name, conf.Notify)

	log.Default().Println("deploying contracts from genesis...")

	c := chain.New(chid)

	dep, err := deploy.Deploy(c, conf.Genesis)
	if err != nil {
		log.Fatal(err)
	}

	idx := governance.NewIndexer(ctx, dep, d, w)
	c.Subscribe(idx.Handle)

	log.Default().Println("replaying stored calls...")

	n, err := d.Replay(c)
	if err != nil {
		w.NotifyError(ctx, err)
		sentry.CaptureException(err)
		log.Fatal(err)
	}

	log.Default().Printf("restored %d calls, height %d\n", n, c.Height())

	// only calls made from here on are new
	c.SetRecorder(d)

	quitAck := make(chan error)

	go func() {
		quitAck <- idx.Start()
	}()

	txq := queue.NewService(*txqbf, *retries, ctx, w)

	go func() {
		quitAck <- txq.Start(queue.NewTxService(c, *retries))
	}()

	log.Default().Println("starting api service...")

	rpc := governance.NewRPCService(dep, txq, idx, *timeout)

	api := router.NewServer(conf.APIKEY, dep, d, rpc)

	go func() {
		quitAck <- api.Start(*port)
	}()

	log.Default().Println("listening on port: ", *port)

	for err := range quitAck {
		if err != nil {
			w.NotifyError(ctx, err)
			sentry.CaptureException(err)
			log.Fatal(err)
		}
	}
}
