package app

import (
	"errors"
	"flag"
)

type Config struct {
	DBPath   string
	RunID    int64
	Floor    *float64
	Ceiling  *float64
	RawOnly  bool
	ListOnly bool
}

func NewConfigFromCLI() (*Config, error) {
	var c Config

	var floor, ceiling float64
	flag.StringVar(&c.DBPath, "db", "", "Path to the run archive file")
	flag.Int64Var(&c.RunID, "r", 0, "Run ID to report on. Omit to list archived runs")
	flag.Float64Var(&floor, "floor", 0, "Clamp calibrated powers to this floor (dBm)")
	flag.Float64Var(&ceiling, "ceiling", 0, "Clamp calibrated powers to this ceiling (dBm)")
	flag.BoolVar(&c.RawOnly, "raw", false, "Print raw counters instead of calibrated powers")
	flag.Parse()

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "floor" {
			c.Floor = &floor
		}
		if f.Name == "ceiling" {
			c.Ceiling = &ceiling
		}
	})

	if c.DBPath == "" {
		flag.Usage()
		return nil, errors.New("db path is required")
	}

	c.ListOnly = c.RunID <= 0
	return &c, nil
}
