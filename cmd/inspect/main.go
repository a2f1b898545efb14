// Command inspect dumps raw store keys (and optionally values) by
// prefix, for debugging the key layout of a messengerdb database.
package main

import (
	"flag"
	"fmt"
	"os"

	"messengerdb/pkg/logger"
	"messengerdb/pkg/store"
)

func main() {
	var (
		dbPath string
		prefix string
		values bool
	)
	flag.StringVar(&dbPath, "db", "", "Pebble DB path")
	flag.StringVar(&prefix, "prefix", "", "key prefix to list (e.g. conv:, uconv:, umsg:, pair:, user:)")
	flag.BoolVar(&values, "values", false, "print values alongside keys")
	flag.Parse()
	if dbPath == "" {
		fmt.Fprintln(os.Stderr, "--db required")
		os.Exit(2)
	}
	logger.Init()

	if err := store.Open(dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "open failed: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	keys, err := store.ListKeys(prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list failed: %v\n", err)
		os.Exit(1)
	}
	for _, k := range keys {
		if !values {
			fmt.Println(k)
			continue
		}
		v, err := store.GetKey(k)
		if err != nil {
			fmt.Printf("%s\t<error: %v>\n", k, err)
			continue
		}
		fmt.Printf("%s\t%s\n", k, v)
	}
	fmt.Fprintf(os.Stderr, "%d keys\n", len(keys))
}
