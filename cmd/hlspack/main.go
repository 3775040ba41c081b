// Command hlspack exposes the segmentation engine and playlist tooling as
// a CLI: `hlspack segment` and `hlspack playlist parse|generate|validate`.
// Apart from logger.Fatal, which nothing in this module calls, this is the
// only place os.Exit is called.
package main

import (
	"context"
	"fmt"
	"os"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "segment":
		err = runSegment(os.Args[2:])
	case "playlist":
		err = runPlaylist(os.Args[2:])
	case "version":
		fmt.Printf("hlspack %s (commit: %s)\n", version, commit)
		return
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "hlspack: %v\n", err)
		os.Exit(1)
	}
}

func cliContext() context.Context {
	return context.Background()
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: hlspack <segment|playlist|version> [flags]")
	fmt.Fprintln(os.Stderr, "  hlspack segment <input.mp4> --format=fmp4|ts --out=<dir> [--byte-range] [--config=hlspack.yaml]")
	fmt.Fprintln(os.Stderr, "  hlspack playlist parse <playlist.m3u8>")
	fmt.Fprintln(os.Stderr, "  hlspack playlist generate <playlist.json> <playlist.m3u8>")
	fmt.Fprintln(os.Stderr, "  hlspack playlist validate <playlist.m3u8> [--strict]")
}
