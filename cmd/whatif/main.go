package main

import (
	"context"
	"flag"
	"io/ioutil"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/pdf1802/F1-Simulator/internal/simulator"
	"github.com/pdf1802/F1-Simulator/pkg/history"
)

var configPath string

func init() {
	flag.StringVar(&configPath, "c", "./config.yml", "config path")
}

func main() {
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetLevel(logrus.DebugLevel)

	logger.Infof("Starting the F1 What-If Simulator")

	config, err := readConfig()

	if err != nil {
		logger.WithError(err).Fatalf("Could not read config at %s", configPath)
	}

	loader, err := history.NewLoader(config.Race.SessionDir, config.Race.CacheFile)

	if err != nil {
		logger.WithError(err).Fatal("Could not initialise the session loader")
	}

	defer loader.Close()

	session, err := loader.LoadSession(config.Race.RaceID, config.Race.UserDriver)

	if err != nil {
		logger.WithError(err).Fatalf("Could not load session: %s", config.Race.RaceID)
	}

	timeline, err := simulator.NewTimeline(session, logger)

	if err != nil {
		logger.WithError(err).Fatal("Could not initialise the race timeline")
	}

	server := simulator.NewServer(config.Server, timeline, logger)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	go func() {
		for range c {
			server.Stop()
		}
	}()

	if err := server.Run(context.Background()); err != nil {
		logger.WithError(err).Fatal("Could not run simulator")
	}

	logger.Infof("Simulator stopped. Exiting")
}

type Config struct {
	Server *simulator.ServerConfig `json:"server" yaml:"server"`
	Race   *simulator.RaceConfig   `json:"race" yaml:"race"`
}

func readConfig() (*Config, error) {
	data, err := ioutil.ReadFile(configPath)

	if err != nil {
		return nil, err
	}

	var config *Config

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	if config == nil {
		return nil, errors.Errorf("config file %s is empty", configPath)
	}

	if config.Server == nil {
		config.Server = &simulator.ServerConfig{HTTPPort: 8772}
	}

	if config.Race == nil {
		config.Race = &simulator.RaceConfig{}
	}

	return config, nil
}
