package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/flowgen/assemble"
	"github.com/wippyai/flowgen/ast"
	"github.com/wippyai/flowgen/codegen"
	"github.com/wippyai/flowgen/driver"
	"github.com/wippyai/flowgen/flow"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to a TOML config file")
		funcName    = flag.String("func", "", "Only show this function")
		workers     = flag.Int("workers", 0, "Concurrent generation tasks (0 = GOMAXPROCS)")
		assembleOut = flag.Bool("bytes", false, "Assemble and show code bytes")
		verbose     = flag.Bool("v", false, "Log control-flow decisions to stderr")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: flowgen [-config flowgen.toml] [-func name] [-bytes] [-v] <fixture.yaml>...")
		fmt.Fprintln(os.Stderr, "       flowgen -i <fixture.yaml>...  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		if err := installLogger(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	opts, asm := cfg.options()
	if *workers > 0 {
		opts.Workers = *workers
	}
	if asm || *assembleOut {
		opts.Pools = &assemble.Pools{}
	}

	fns, err := loadFixtures(flag.Args(), *funcName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if err := runInteractive(fns, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(fns, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func installLogger() error {
	l, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	flow.SetLogger(l.Named("flow"))
	codegen.SetLogger(l.Named("codegen"))
	driver.SetLogger(l.Named("driver"))
	return nil
}

// loadFixtures decodes every fixture file. A non-empty only keeps the
// functions with that name.
func loadFixtures(paths []string, only string) ([]*ast.Function, error) {
	var fns []*ast.Function
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		file, err := ast.DecodeYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, fn := range file.Functions {
			if only == "" || fn.Name == only {
				fns = append(fns, fn)
			}
		}
	}
	if len(fns) == 0 {
		return nil, fmt.Errorf("no functions to generate")
	}
	return fns, nil
}

func run(fns []*ast.Function, opts driver.Options) error {
	p := plainPalette
	if term.IsTerminal(int(os.Stdout.Fd())) {
		p = colorPalette
	}

	emit := driver.EmitterFunc(func(res *driver.Result) error {
		_, err := fmt.Println(render(res, fns[res.Index].Name, p))
		return err
	})
	return driver.GenerateAll(context.Background(), fns, opts, emit)
}
