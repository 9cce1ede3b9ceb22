package main

import (
	"encoding/hex"
	"log"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/omnikdao/governance/internal/common"
)

func main() {
	log.Default().Println("generating...")
	log.Default().Println(" ")

	k, err := crypto.GenerateKey()
	if err != nil {
		log.Fatal(err)
	}

	keyHex := hex.EncodeToString(crypto.FromECDSA(k))

	// round trip, the key is what request signers load
	pk, err := common.HexToPrivateKey(keyHex)
	if err != nil {
		log.Fatal(err)
	}

	log.Default().Printf("key: %s\n", keyHex)
	log.Default().Printf("address: %s\n", crypto.PubkeyToAddress(pk.PublicKey).Hex())
}
