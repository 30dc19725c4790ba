package main

import (
	"context"
	"os"

	"github.com/reductstore/reductstore-operator/internal/probe"
)

func main() {
	os.Exit(probe.Main(context.Background(), os.Args[1:], os.Stderr))
}
