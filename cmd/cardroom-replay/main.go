// cardroom-replay rebuilds a completed hand record from its event
// stream and prints it, verifying that the stored record matches.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/openfelt/cardroom/internal/history"
)

var CLI struct {
	File    string `arg:"" help:"Path to a hand_<id>.jsonl event stream"`
	Verbose bool   `short:"v" help:"Print every event before the rebuilt record"`
}

func main() {
	kctx := kong.Parse(&CLI)

	data, err := os.ReadFile(CLI.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", CLI.File, err)
		kctx.Exit(1)
	}

	if CLI.Verbose {
		events, err := history.DecodeEvents(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "decode events: %v\n", err)
			kctx.Exit(1)
		}
		for _, e := range events {
			fmt.Printf("%4d %s\n", e.Sequence(), e.Type())
		}
	}

	rec, err := history.Replay(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		kctx.Exit(1)
	}
	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode record: %v\n", err)
		kctx.Exit(1)
	}
	fmt.Println(string(out))
}
