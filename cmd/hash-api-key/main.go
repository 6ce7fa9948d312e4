// Command hash-api-key prints the bcrypt hash of a plain API key, suitable
// for the API_KEY_HASH environment variable.
package main

import (
	"flag"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/datacheck_backend/utils"
)

func main() {
	key := flag.String("key", "", "plain API key to hash")
	flag.Parse()

	if *key == "" {
		fmt.Fprintln(os.Stderr, "usage: hash-api-key -key <plain-key>")
		os.Exit(2)
	}

	hash, err := utils.HashAPIKey(*key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hashing key: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(hash))
}
