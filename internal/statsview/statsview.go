//go:build statsview

package statsview

import (
	"fmt"
	"io"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// Path is where the charts are served.
const Path = "/debug/statsview"

// Launch starts the statistics server on addr in a new goroutine.
func Launch(addr string, output io.Writer) error {
	if addr == "" {
		addr = DefaultAddress
	}
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(addr))
		mgr := statsview.New()
		mgr.Start()
	}()

	fmt.Fprintf(output, "stats server available at http://%s%s\n", addr, Path)
	return nil
}

// Available returns true if a statsview is available to launch.
func Available() bool {
	return true
}
