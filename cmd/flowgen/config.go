package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/flowgen/codegen"
	"github.com/wippyai/flowgen/driver"
)

// fileConfig is the layout of a flowgen.toml file:
//
//	workers = 4
//	assemble = true
//
//	[codegen]
//	needs_this = true
//	allow_duplicate_labels = false
//	integer_increments = true
type fileConfig struct {
	Codegen  codegen.Config `toml:"codegen"`
	Workers  int            `toml:"workers"`
	Assemble bool           `toml:"assemble"`
}

func loadConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("%s: workers must not be negative", path)
	}
	return cfg, nil
}

func (c *fileConfig) options() (driver.Options, bool) {
	return driver.Options{Codegen: c.Codegen, Workers: c.Workers}, c.Assemble
}
