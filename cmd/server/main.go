package main

import (
	"fmt"
	"os"
)

// @title Account Ledger API
// @version 1.0
// @description Authenticated account ledger: registration, login, transfers and ledger queries.
// @host localhost:5000
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
