package main

//go:generate go run github.com/valyala/quicktemplate/qtc -dir=templates

import (
	"context"
	"fmt"
	"go/format"
	"log"
	"os"
	"time"

	"github.com/delaneyj/hookparty/cmd/codegen/templates"
	"github.com/urfave/cli/v3"
)

const (
	maxSourcesKey = "count"
	outKey        = "out"
)

func main() {
	cmd := &cli.Command{
		Name:  "generate",
		Usage: "Generate the typed multi-source watchers",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  maxSourcesKey,
				Usage: "Largest number of sources to generate a watcher for",
				Value: 4,
			},
			&cli.StringFlag{
				Name:  outKey,
				Usage: "Output file",
				Value: "reactive/watch_gen.go",
			},
		},
		Action: generate,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func generate(ctx context.Context, cmd *cli.Command) error {
	start := time.Now()
	log.Printf("Codegen for watchers started !")
	defer func() {
		log.Printf("Codegen for watchers finished in %v", time.Since(start))
	}()

	maxSources := int(cmd.Int(maxSourcesKey))
	if maxSources < 2 {
		return fmt.Errorf("--%s must be at least 2, got %d", maxSourcesKey, maxSources)
	}
	out := cmd.String(outKey)
	log.Printf("Watchers: 2..%d -> %s", maxSources, out)

	src, err := format.Source([]byte(templates.WatchGen(maxSources)))
	if err != nil {
		return fmt.Errorf("format generated code: %w", err)
	}
	return os.WriteFile(out, src, 0644)
}
