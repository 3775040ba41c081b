package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/ngohuy/hlspacker/pkg/playlist"
)

func runPlaylist(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("playlist: missing subcommand (parse|generate|validate)")
	}

	switch args[0] {
	case "parse":
		return runPlaylistParse(args[1:])
	case "generate":
		return runPlaylistGenerate(args[1:])
	case "validate":
		return runPlaylistValidate(args[1:])
	default:
		return fmt.Errorf("playlist: unknown subcommand %q", args[0])
	}
}

func runPlaylistParse(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("playlist parse: missing playlist file")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("playlist parse: %w", err)
	}
	result, err := playlist.Parse(string(data))
	if err != nil {
		return fmt.Errorf("playlist parse: %w", err)
	}

	switch result.Kind {
	case playlist.KindMedia:
		m := result.Media
		fmt.Printf("media playlist: version=%d target_duration=%d segments=%d media_sequence=%d end_list=%v\n",
			m.Version, m.TargetDuration, len(m.Segments), m.MediaSequence, m.EndList)
	case playlist.KindMaster:
		m := result.Master
		fmt.Printf("master playlist: version=%d variants=%d renditions=%d\n",
			m.Version, len(m.Variants), len(m.Renditions))
	default:
		fmt.Println("unknown playlist kind")
	}
	return nil
}

// playlistDoc is the JSON shape `playlist generate` reads: exactly one of
// Media or Master populated, mirroring playlist.ParseResult.
type playlistDoc struct {
	Media  *playlist.MediaPlaylist  `json:"media,omitempty"`
	Master *playlist.MasterPlaylist `json:"master,omitempty"`
}

func runPlaylistGenerate(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("playlist generate: usage: generate <playlist.json> <playlist.m3u8>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("playlist generate: %w", err)
	}

	var doc playlistDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("playlist generate: invalid JSON: %w", err)
	}

	var text string
	switch {
	case doc.Media != nil:
		text = playlist.WriteMediaPlaylist(doc.Media)
	case doc.Master != nil:
		text = playlist.WriteMasterPlaylist(doc.Master)
	default:
		return fmt.Errorf("playlist generate: JSON must set either \"media\" or \"master\"")
	}

	if err := os.WriteFile(args[1], []byte(text), 0o644); err != nil {
		return fmt.Errorf("playlist generate: %w", err)
	}
	return nil
}

func runPlaylistValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	strict := fs.Bool("strict", false, "use Apple HLS authoring strictness instead of the RFC 8216 baseline")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("playlist validate: missing playlist file")
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("playlist validate: %w", err)
	}
	result, err := playlist.Parse(string(data))
	if err != nil {
		return fmt.Errorf("playlist validate: %w", err)
	}

	level := playlist.RFC8216Baseline
	if *strict {
		level = playlist.AppleHLSStrict
	}

	var issues []playlist.ValidationIssue
	switch result.Kind {
	case playlist.KindMedia:
		issues = playlist.ValidateMediaPlaylist(result.Media, level)
	case playlist.KindMaster:
		issues = playlist.ValidateMasterPlaylist(result.Master)
	default:
		return fmt.Errorf("playlist validate: unrecognized playlist")
	}

	hasErrors := false
	for _, issue := range issues {
		fmt.Println(issue.String())
		if issue.Severity == "error" {
			hasErrors = true
		}
	}
	if len(issues) == 0 {
		fmt.Println("playlist is valid")
	}
	if hasErrors {
		return fmt.Errorf("playlist validate: playlist has errors")
	}
	return nil
}
