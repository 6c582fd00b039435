//go:build statsview

// Package statsview serves Go runtime charts (heap, goroutines, GC) while the
// emulator runs. Build with -tags statsview to enable it.
package statsview

import (
	"fmt"
	"io"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

const DefaultAddress = "localhost:12600"
const url = "/debug/statsview"

// Launch starts the stats server on its own goroutine
func Launch(addr string, output io.Writer) {
	if addr == "" {
		addr = DefaultAddress
	}
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(addr))
		statsview.New().Start()
	}()

	fmt.Fprintf(output, "stats server available at http://%s%s\n", addr, url)
}

func Available() bool {
	return true
}
