// Command-line interface to the array viewer.  Opens a zarr or OME-NGFF
// dataset from a local directory, bucket, or HTTP URL and serves the viewer
// web API until interrupted.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/tlambert03/ndv/data"
	"github.com/tlambert03/ndv/ndv"
	"github.com/tlambert03/ndv/ngff"
	"github.com/tlambert03/ndv/server"
	"github.com/tlambert03/ndv/storage"
	"github.com/tlambert03/ndv/zarr"
)

var (
	// Display usage if true.
	showHelp = flag.Bool("help", false, "")

	// Run in verbose mode if true.
	runVerbose = flag.Bool("verbose", false, "")

	// Path to a TOML configuration file.
	configFile = flag.String("config", "", "")

	// Address for http communication.
	httpAddress = flag.String("http", "", "")

	// Path of the array within a bare zarr hierarchy.
	arrayPath = flag.String("array", "", "")

	// Comma-separated dimension labels for bare zarr arrays.
	labels = flag.String("labels", "", "")
)

const helpMessage = `
ndv serves an interactive viewer for n-dimensional array data

Usage: ndv [options] <dataset>

	<dataset> is a local zarr directory, an s3:// or gs:// bucket, or an
	http(s) URL of an OME-NGFF hierarchy.

      -config     =string   Path to TOML configuration file.
      -http       =string   Address for HTTP communication.
      -array      =string   Array path inside a bare zarr hierarchy.
      -labels     =string   Comma-separated dimension labels, e.g. "t,c,y,x".
      -verbose    (flag)    Run in verbose mode.
  -h, -help       (flag)    Show help message
`

func main() {
	flag.Usage = func() { fmt.Print(helpMessage) }
	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}
	if *runVerbose {
		ndv.SetLogMode(ndv.DebugMode)
	}

	config := server.DefaultConfig()
	if *configFile != "" {
		var err error
		if config, err = server.LoadConfig(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}
	if *httpAddress != "" {
		config.Server.HTTPAddress = *httpAddress
	}
	if flag.NArg() > 0 {
		config.Dataset.Ref = flag.Arg(0)
	}
	if *arrayPath != "" {
		config.Dataset.Path = *arrayPath
	}
	if *labels != "" {
		config.Dataset.Labels = splitLabels(*labels)
	}
	if config.Dataset.Ref == "" {
		fmt.Fprintf(os.Stderr, "no dataset given\n")
		flag.Usage()
		os.Exit(1)
	}

	ctx := context.Background()
	wrapper, err := openDataset(ctx, config)
	if err != nil {
		ndv.Criticalf("Cannot open dataset %q: %v\n", config.Dataset.Ref, err)
		os.Exit(1)
	}

	if err := server.View(ctx, wrapper, config); err != nil {
		ndv.Criticalf("Server error: %v\n", err)
		os.Exit(1)
	}
	ndv.Shutdown()
}

// openDataset resolves the dataset reference to a data wrapper, preferring
// NGFF multiscale metadata and falling back to a bare zarr array.
func openDataset(ctx context.Context, config *server.Config) (data.Wrapper, error) {
	store, err := storage.OpenStore(ctx, config.Dataset.Ref)
	if err != nil {
		return nil, err
	}
	if mb := config.CacheMB("chunk"); mb > 0 {
		store = storage.NewCacheStore(store, mb)
	}

	if config.Dataset.Path == "" {
		if ds, err := ngff.OpenDataset(ctx, store); err == nil {
			return ds.Wrapper(ctx, ds.Levels()[0].Path)
		}
	}

	arr, err := zarr.Open(ctx, store, config.Dataset.Path)
	if err != nil {
		return nil, err
	}
	return zarr.NewWrapper(arr, config.Dataset.Labels...)
}

func splitLabels(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
