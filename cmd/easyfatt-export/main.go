// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package main implements the easyfatt-export command.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"github.com/wneessen/easyfatt-export/internal/config"
	"github.com/wneessen/easyfatt-export/internal/http"
	"github.com/wneessen/easyfatt-export/internal/i18n"
	"github.com/wneessen/easyfatt-export/internal/logger"
	"github.com/wneessen/easyfatt-export/internal/prompt"
	"github.com/wneessen/easyfatt-export/internal/service"
	"github.com/wneessen/easyfatt-export/internal/updater"
)

const (
	localConfigFile = "veryeasyfatt.config.toml"
	userConfigDir   = "easyfatt-export"
	userConfigFile  = "config.toml"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGABRT, os.Interrupt)
	defer cancel()

	// Initialize logger
	log := logger.New(slog.LevelError)

	var confPath, goal string
	var showVersion, skipVersionCheck bool
	flag.StringVar(&confPath, "c", "", "path to the config file")
	flag.StringVar(&confPath, "config", "", "path to the config file")
	flag.BoolVar(&showVersion, "V", false, "print the version and exit")
	flag.BoolVar(&showVersion, "version", false, "print the version and exit")
	flag.BoolVar(&skipVersionCheck, "disable-version-check", false, "do not check for a new release")
	flag.StringVar(&goal, "goal", "", "goal to run: csv-generator, kml-generator, initialize-geo-cache or "+
		"initialize-geo-cache-dryrun")
	flag.Parse()

	if showVersion {
		fmt.Printf("easyfatt-export %s (commit: %s, built: %s)\n", version, commit, date)
		return 0
	}

	conf, err := loadConfig(confPath)
	if err != nil {
		log.Error("failed to load config", logger.Err(err))
		return 1
	}
	log = logger.New(conf.Level()).With(slog.String("run_id", uuid.NewString()))

	t, err := i18n.New(conf.Locale)
	if err != nil {
		log.Error("failed to initialize localizer", logger.Err(err))
		return 1
	}
	prompter := prompt.NewTerminal(t)

	serv, err := service.New(conf, log, t, prompter)
	if err != nil {
		log.Error(t.Get("failed to initialize easyfatt-export"), logger.Err(err))
		return 1
	}
	log.Info(t.Get("starting easyfatt-export"), slog.String("version", version),
		slog.String("commit", commit), slog.String("date", date))

	if !skipVersionCheck {
		checkVersion(ctx, log, t, conf.Updater.Repository)
	}
	if err = serv.CheckRequiredFiles(); err != nil {
		log.Error(t.Get("required files are missing"), logger.Err(err))
		return 1
	}

	if goal == "" {
		if !prompter.Interactive() {
			log.Error("no goal given and standard input is not a terminal")
			return 1
		}
		if goal, err = serv.SelectGoal(); err != nil {
			log.Error("failed to select goal", logger.Err(err))
			return 1
		}
		if goal == "" {
			return 0
		}
	}

	if err = serv.Run(ctx, goal); err != nil {
		log.Error(t.Get("goal failed"), slog.String("goal", goal), logger.Err(err))
		return 1
	}
	return 0
}

// loadConfig reads the explicitly given file, else the first config file found in the
// working directory or the user config directory, else only defaults and environment.
func loadConfig(confPath string) (*config.Config, error) {
	if confPath == "" {
		confPath = findConfigFile()
	}
	if confPath == "" {
		return config.New()
	}
	return config.NewFromFile(filepath.Dir(confPath), filepath.Base(confPath))
}

func findConfigFile() string {
	candidates := []string{localConfigFile}
	if confdir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(confdir, userConfigDir, userConfigFile))
	}
	if homedir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homedir, ".config", userConfigDir, userConfigFile))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// checkVersion logs a notice when a newer release is published. Failures are not fatal.
func checkVersion(ctx context.Context, log *logger.Logger, t *i18n.Localizer, repository string) {
	upd, err := updater.New(http.New(log), repository)
	if err != nil {
		log.Warn("version check disabled", logger.Err(err))
		return
	}
	release, available, err := upd.Check(ctx, version)
	if err != nil {
		log.Warn("failed to check for a new version", logger.Err(err))
		return
	}
	if !available {
		log.Debug("running the latest version", slog.String("latest", release.Version))
		return
	}
	log.Warn(t.Getf("a new version is available: %s", release.String()), slog.String("url", release.URL),
		slog.String("current", version))
}
