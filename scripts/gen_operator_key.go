package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	gagsolana "github.com/gagliardetto/solana-go"

	"burnvault/pkg/solana"
)

// Generates a fresh operator keypair, encrypts it with ENCRYPTPASSWORD, and
// writes the keystore entry under VAULT_KEYSTORE_DIR. Run with:
//
//	go run scripts/gen_operator_key.go
func main() {
	show := flag.Bool("show", false, "print the private key to stdout")
	flag.Parse()

	password := os.Getenv("ENCRYPTPASSWORD")
	if password == "" {
		log.Fatal("ENCRYPTPASSWORD environment variable is not set")
	}

	km := solana.NewKeyManager()

	account, err := km.GenerateKeyPair()
	if err != nil {
		log.Fatalf("Failed to generate keypair: %v", err)
	}

	if err := km.SaveKeyStoreEntry(account, password); err != nil {
		log.Fatalf("Failed to save keystore entry: %v", err)
	}

	fmt.Println("Operator address:", account.PublicKey.ToBase58())
	fmt.Println("Keystore entry written; set OPERATOR_ADDRESS to the address above")
	if *show {
		fmt.Println("Private key:", gagsolana.PrivateKey(account.PrivateKey).String())
	}
}
