package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"github.com/delaneyj/hookparty/lifecycle"
	"github.com/delaneyj/hookparty/reactive"
	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	scenarioKey = "scenario"
	profileKey  = "profile"
	verboseKey  = "v"
)

// scenario sizes the propagation grid and the lifecycle run.
type scenario struct {
	Widths     []int `yaml:"widths"`
	Heights    []int `yaml:"heights"`
	Iterations int   `yaml:"iterations"`
	Contexts   int   `yaml:"contexts"`
	Cycles     int   `yaml:"cycles"`
}

var defaultScenario = scenario{
	Widths:     []int{1, 10, 100, 1_000},
	Heights:    []int{1, 10, 100, 1_000},
	Iterations: 100,
	Contexts:   1_000,
	Cycles:     100,
}

func main() {
	cmd := &cli.Command{
		Name:  "benchmark",
		Usage: "Propagation and lifecycle latency for hookparty",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  scenarioKey,
				Usage: "YAML scenario file overriding the default grid",
			},
			&cli.StringFlag{
				Name:  profileKey,
				Usage: "Write a CPU profile to this file",
				Value: "default.pgo",
			},
			&cli.IntFlag{
				Name:  verboseKey,
				Usage: "Log verbosity",
			},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	stdr.SetVerbosity(int(cmd.Int(verboseKey)))
	logger := stdr.New(log.New(os.Stderr, "", log.LstdFlags))

	sc := defaultScenario
	if path := cmd.String(scenarioKey); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(b, &sc); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if path := cmd.String(profileKey); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

	log.Printf("warming up")

	for _, mode := range []reactive.FlushMode{reactive.FlushSync, reactive.FlushPre} {
		if err := benchmarkPropagate(logger, sc, mode); err != nil {
			return err
		}
	}
	return benchmarkLifecycle(logger, sc)
}

func newSystem(logger logr.Logger) *reactive.ReactiveSystem {
	return reactive.CreateReactiveSystem(func(from reactive.SignalAware, err error) {
		log.Panic(err)
	}, reactive.WithLogger(logger))
}

// benchmarkPropagate builds w chains of h computeds over one ref, each chain
// ending in an effect, and times a write plus the flush that reaches every
// effect.
func benchmarkPropagate(logger logr.Logger, sc scenario, mode reactive.FlushMode) error {
	tbl := table.NewWriter()
	tbl.SetTitle(fmt.Sprintf("Propagation (%s flush)", mode))
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})

	for _, w := range sc.Widths {
		for _, h := range sc.Heights {
			tach := tachymeter.New(&tachymeter.Config{Size: sc.Iterations})

			rs := newSystem(logger)
			src := reactive.NewRef(rs, 1)
			for i := 0; i < w; i++ {
				var last reactive.Readable[int] = src
				for j := 0; j < h; j++ {
					prev := last
					last = reactive.Computed(rs, func(int) int {
						return prev.Value() + 1
					})
				}
				if _, err := reactive.CreateEffect(rs, func(reactive.OnInvalidateFunc) error {
					last.Value()
					return nil
				}, reactive.WithFlush(mode)); err != nil {
					return err
				}
			}

			for i := 0; i < sc.Iterations; i++ {
				start := time.Now()
				src.SetValue(src.Peek() + 1)
				rs.Flush(mode)
				tach.AddTime(time.Since(start))
			}

			calc := tach.Calc()
			tbl.AppendRow(table.Row{
				fmt.Sprintf("propagate: %d * %d", w, h),
				calc.Time.Avg,
				calc.Time.Min,
				calc.Time.P75,
				calc.Time.P99,
				calc.Time.Max,
			})
		}
	}

	tbl.Render()
	return nil
}

type counterHost struct {
	Count   int
	Doubled int
	Label   string
}

type countingDetector struct {
	marks int
}

func (d *countingDetector) MarkDirty(*lifecycle.Context)     { d.marks++ }
func (d *countingDetector) DetectChanges(*lifecycle.Context) { d.marks++ }

// benchmarkLifecycle mounts contexts whose setup binds a ref and a computed,
// then times change detection cycles that each bump every ref.
func benchmarkLifecycle(logger logr.Logger, sc scenario) error {
	rs := newSystem(logger)
	detector := &countingDetector{}
	rt := lifecycle.New(rs, lifecycle.WithLogger(logger), lifecycle.WithChangeDetector(detector))

	type mounted struct {
		ctx   *lifecycle.Context
		count *reactive.Ref[int]
	}
	all := make([]mounted, 0, sc.Contexts)

	mountTach := tachymeter.New(&tachymeter.Config{Size: sc.Contexts})
	for i := 0; i < sc.Contexts; i++ {
		host := &counterHost{}
		c := rt.NewContext(host, nil)
		var count *reactive.Ref[int]
		start := time.Now()
		err := rt.Mount(c, func(c *lifecycle.Context) (lifecycle.Bindings, error) {
			count = reactive.NewRef(rs, 0)
			doubled := reactive.Computed(rs, func(int) int {
				return count.Value() * 2
			})
			if _, err := reactive.Watch(rs, count, func(n, o int, _ reactive.OnInvalidateFunc) error {
				return nil
			}); err != nil {
				return nil, err
			}
			return lifecycle.Bindings{
				"Count":   count,
				"Doubled": doubled,
				"Label":   fmt.Sprintf("counter %d", i),
			}, nil
		}, nil)
		if err != nil {
			return err
		}
		mountTach.AddTime(time.Since(start))
		all = append(all, mounted{ctx: c, count: count})
	}

	cycleTach := tachymeter.New(&tachymeter.Config{Size: sc.Cycles})
	for i := 0; i < sc.Cycles; i++ {
		start := time.Now()
		for _, m := range all {
			m.count.Update(func(old int) int { return old + 1 })
			if err := rt.Cycle(m.ctx, nil); err != nil {
				return err
			}
		}
		cycleTach.AddTime(time.Since(start))
	}

	destroyTach := tachymeter.New(&tachymeter.Config{Size: len(all)})
	for _, m := range all {
		start := time.Now()
		if err := rt.OnDestroy(m.ctx); err != nil {
			return err
		}
		destroyTach.AddTime(time.Since(start))
	}

	tbl := table.NewWriter()
	tbl.SetTitle(fmt.Sprintf("Lifecycle (%d contexts, %d dirty marks)", sc.Contexts, detector.marks))
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})
	for _, row := range []struct {
		name string
		tach *tachymeter.Tachymeter
	}{
		{"mount", mountTach},
		{"cycle all", cycleTach},
		{"destroy", destroyTach},
	} {
		calc := row.tach.Calc()
		tbl.AppendRow(table.Row{row.name, calc.Time.Avg, calc.Time.Min, calc.Time.P75, calc.Time.P99, calc.Time.Max})
	}
	tbl.Render()
	return nil
}
