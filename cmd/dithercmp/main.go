// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the dithercmp CLI.
package main

import (
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/dithercmp/pkg/types"
)

const appName = "dithercmp"

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the dithercmp CLI.
var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Render one image per dithering method for side-by-side comparison",
	Long: `dithercmp runs an external image conversion tool (ImageMagick convert by
default) once per configured dithering method, writing <method>.png into an
output directory. Each run resizes to the printer width and converts to
grayscale before applying the method's flags and a final error-diffusion dither.

The method table comes from --methods, the methods_file setting, or a
"methods" mapping in the config file, in that order; otherwise the built-in
table is used.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetBool("verbose") {
			log.SetLevel(log.DebugLevel)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./dithercmp.yaml or ~/.config/dithercmp/dithercmp.yaml)")
	pf.String("methods", "", "YAML file with a methods mapping of name to flags")
	pf.String("out-dir", types.DefaultOutputDir, "directory receiving one image per method")
	pf.String("history-db", "", "run history database (default: <out-dir>/.dithercmp/history.db)")
	pf.BoolP("verbose", "v", false, "enable debug logging")

	mustBind("methods_file", pf.Lookup("methods"))
	mustBind("out_dir", pf.Lookup("out-dir"))
	mustBind("history_db", pf.Lookup("history-db"))
	mustBind("verbose", pf.Lookup("verbose"))

	viper.SetDefault("tool", types.DefaultTool)
	viper.SetDefault("input", types.DefaultInputPath)
	viper.SetDefault("out_dir", types.DefaultOutputDir)
	viper.SetDefault("resize", types.DefaultResize)
	viper.SetDefault("colorspace", types.DefaultColorspace)
	viper.SetDefault("diffusion", types.DefaultDiffusion)
	viper.SetDefault("extension", types.DefaultExtension)
	viper.SetDefault("workers", 1)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(appName)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", appName))
		}
	}

	viper.SetEnvPrefix("DITHERCMP")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.WithField("path", viper.ConfigFileUsed()).Info("using config file")
	} else if cfgFile != "" {
		log.WithError(err).Fatal("reading config file")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.WithFields(log.Fields{
			"app.name": appName,
			"error":    err.Error(),
		}).Error("exited with an error")
		os.Exit(1)
	}
}
