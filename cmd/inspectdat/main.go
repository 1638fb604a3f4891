// Command inspectdat dumps part files read directly from disk, without the
// configuration layer. Each argument is a path to a .dat/.ldr file; its
// references are resolved against the directory given by -parts.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"ldraw2stl/internal/cli"
	"ldraw2stl/internal/curve"
	"ldraw2stl/internal/partstore"
)

func main() {
	partsDir := flag.String("parts", "", "part library directory (default: directory of each file)")
	segments := flag.Int("segments", curve.DefaultSegments, "vertices per approximated curve")
	flag.Parse()

	failed := false
	for _, arg := range flag.Args() {
		root := *partsDir
		if root == "" {
			root = filepath.Dir(arg)
		}
		store := partstore.NewDir(root)
		name, ok := store.Name(arg)
		if !ok {
			name = filepath.Base(arg)
		}
		if err := cli.Inspect(os.Stdout, store, name, *segments); err != nil {
			fmt.Fprintf(os.Stderr, "Inspect error %s: %v\n", arg, err)
			failed = true
		}
		fmt.Println()
	}
	if failed {
		os.Exit(1)
	}
}
