// Command loader packages a binary with an NSIH boot header and downloads it
// to an S5P6818 boot ROM over USB.
//
// Usage:
//
//	loader [-h32|-h64] [-inject] [-l<hex>] [-s<hex>] [-a<sector>] [-o] <image>
//
// Run "loader --help" for the full flag list.
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := newLoader(os.Stdout, os.Stderr).execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
