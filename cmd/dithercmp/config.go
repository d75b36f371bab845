// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/dithercmp/internal/history"
	"github.com/pdiddy/dithercmp/internal/methods"
	"github.com/pdiddy/dithercmp/pkg/types"
)

// builtinSource names the method table source when no file provides one.
const builtinSource = "built-in"

func mustBind(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", flag.Name, err))
	}
}

// batchConfig assembles the batch settings from flags, environment and the
// config file.
func batchConfig() types.BatchConfig {
	return types.BatchConfig{
		Tool:       viper.GetString("tool"),
		InputPath:  viper.GetString("input"),
		OutputDir:  viper.GetString("out_dir"),
		Resize:     viper.GetString("resize"),
		Colorspace: viper.GetString("colorspace"),
		Diffusion:  viper.GetString("diffusion"),
		Extension:  viper.GetString("extension"),
		Workers:    viper.GetInt("workers"),
	}.WithDefaults()
}

// historyPath returns the configured history database path.
func historyPath() string {
	if p := viper.GetString("history_db"); p != "" {
		return p
	}
	return history.DefaultPath(viper.GetString("out_dir"))
}

// loadTable resolves the method table and reports where it came from. The
// table is read with the YAML loader rather than viper so that method order
// and name case survive.
func loadTable() (methods.Table, string, error) {
	if path := viper.GetString("methods_file"); path != "" {
		t, err := methods.LoadFile(path)
		if err != nil {
			return nil, "", err
		}
		return t, path, t.Validate()
	}

	if path := viper.ConfigFileUsed(); path != "" {
		t, err := methods.LoadFile(path)
		switch {
		case err == nil:
			return t, path, t.Validate()
		case !errors.Is(err, methods.ErrNoMethods):
			return nil, "", err
		}
		log.WithField("path", path).Debug("config file has no methods table")
	}

	return methods.Default(), builtinSource, nil
}
