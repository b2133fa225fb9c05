// Command leatherdrafts drafts leather garment patterns, adds seam
// allowances, packages previews and exports DXF for cutting.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/leather-drafts/internal/fsutil"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(fsutil.OSFileSystem{}).execute(ctx, os.Args[1:]); err != nil {
		stop()
		os.Exit(1)
	}
}
