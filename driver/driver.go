package driver

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/flowgen/assemble"
	"github.com/wippyai/flowgen/ast"
	"github.com/wippyai/flowgen/codegen"
	"github.com/wippyai/flowgen/errors"
)

// Options configures GenerateAll.
type Options struct {
	// Pools receives the constants of assembled methods. Nil skips assembly.
	Pools *assemble.Pools `toml:"-"`
	// Codegen is passed to every generation task.
	Codegen codegen.Config `toml:"codegen"`
	// Workers bounds concurrent generation. Zero uses GOMAXPROCS.
	Workers int `toml:"workers"`
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Result is the outcome of one function.
type Result struct {
	Function *codegen.Function
	Method   *assemble.Method // nil unless Options.Pools is set
	Err      error
	Index    int
}

// Emitter receives finished functions. FinishFunction is called on the
// caller's goroutine, once per input function, in input order.
type Emitter interface {
	FinishFunction(r *Result) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(r *Result) error

// FinishFunction calls f.
func (f EmitterFunc) FinishFunction(r *Result) error { return f(r) }

// GenerateAll generates fns concurrently and hands them to emit in order.
// Each task owns its scope, binding table and flow manager, so nothing is
// shared between tasks. A task that fails does not stop the others; its
// Result carries the error. Cancelling ctx stops tasks that have not
// started yet.
//
// The returned error combines every per-function failure, or is the first
// error returned by emit, which stops finalization.
func GenerateAll(ctx context.Context, fns []*ast.Function, opts Options, emit Emitter) error {
	results := make([]*Result, len(fns))
	for i := range results {
		results[i] = &Result{Index: i}
	}

	var g errgroup.Group
	g.SetLimit(opts.workers())
	start := time.Now()
	for i, fn := range fns {
		if ctx.Err() != nil {
			break
		}
		res := results[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				res.Err = err
				return nil
			}
			res.Function, res.Err = generate(fn, opts.Codegen)
			return nil
		})
	}
	_ = g.Wait()

	Logger().Debug("generation finished",
		zap.Int("functions", len(fns)),
		zap.Duration("elapsed", time.Since(start)))

	var errs error
	for i, res := range results {
		if res.Function == nil && res.Err == nil {
			res.Err = ctx.Err()
		}
		if res.Err == nil && opts.Pools != nil {
			res.Method, res.Err = assemble.Function(res.Function, opts.Pools)
		}
		if res.Err != nil {
			errs = multierr.Append(errs, fmt.Errorf("function %s: %w", fns[i].Name, res.Err))
		}
		if err := emit.FinishFunction(res); err != nil {
			return err
		}
	}
	return errs
}

// generate runs one task. A protocol violation fails only this function.
func generate(fn *ast.Function, cfg codegen.Config) (out *codegen.Function, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		perr, ok := errors.IsProtocol(r)
		if !ok {
			panic(r)
		}
		Logger().Error("protocol violation", zap.String("function", fn.Name), zap.Error(perr))
		out, err = nil, errors.Wrap(perr.Phase, errors.KindProtocol, perr, "generation aborted")
	}()

	debugf("generating %s", fn.Name)
	out = codegen.Generate(fn, cfg)
	return out, out.Err()
}
