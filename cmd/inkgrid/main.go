// Command inkgrid is the desktop scene viewer: it extracts a vector
// scene from a page-description file (or loads a parsed archive) and
// displays it with pan/zoom.
package main

import (
	"os"

	"inkgrid/internal/gui"
)

func main() {
	a := gui.NewApp()
	if len(os.Args) > 1 {
		a.RunWithFile(os.Args[1])
		return
	}
	a.Run()
}
