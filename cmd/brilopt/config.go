package main

import (
	"fmt"
	"os"

	"github.com/naoina/toml"
)

// brilcfg carries flag defaults loaded from a TOML file, for pipelines that
// run brilopt repeatedly with the same settings. Explicit flags always win.
type brilcfg struct {
	Trace     string
	Bail      string
	Output    string
	Pretty    bool
	Verbosity int
}

var cfg brilcfg

func loadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
