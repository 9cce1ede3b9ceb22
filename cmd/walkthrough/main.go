package main

import (
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"

	"github.com/omnikdao/governance/internal/chain"
	"github.com/omnikdao/governance/internal/config"
	"github.com/omnikdao/governance/internal/deploy"
)

// runs the release proposal from delegation to execution against an in-memory chain
func main() {
	genesis := flag.String("genesis", "", "path to a genesis.json (default: built-in genesis)")

	flag.Parse()

	g, err := config.DefaultGenesis()
	if err != nil {
		log.Fatal(err)
	}

	if *genesis != "" {
		g, err = config.LoadGenesis(*genesis)
		if err != nil {
			log.Fatal(err)
		}
	}

	d, err := deploy.Deploy(chain.New(big.NewInt(g.ChainID)), g)
	if err != nil {
		log.Fatal(err)
	}

	res, err := deploy.Walkthrough(d, os.Stdout)
	if err != nil {
		log.Fatal(err)
	}

	if !res.Released {
		fmt.Fprintln(os.Stderr, "funds were not released")
		os.Exit(1)
	}
}
