package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/bokdori-ai/bokdori/daylog"
)

type Config struct {
	Mode       string
	ConfigPath string
	EnvFile    string
	APIKey     string

	// add-documents mode
	Files     string
	Directory string

	// export-logs mode
	LogType   string
	StartDate string
	EndDate   string
	Format    string

	Schedule bool
	Verbose  bool
}

var validModes = map[string]bool{
	"interactive":   true,
	"add-documents": true,
	"export-logs":   true,
	"report":        true,
}

var validLogTypes = map[string]bool{
	"emotions":      true,
	"conversations": true,
	"phishing":      true,
}

func (c Config) Validate() error {
	if !validModes[c.Mode] {
		return fmt.Errorf("unknown -mode %q (interactive, add-documents, export-logs, report)", c.Mode)
	}
	switch c.Mode {
	case "add-documents":
		if c.Files == "" && c.Directory == "" {
			return errors.New("add-documents mode needs -files or -dir")
		}
	case "export-logs":
		if !validLogTypes[c.LogType] {
			return fmt.Errorf("unknown -log-type %q (emotions, conversations, phishing)", c.LogType)
		}
		if _, err := time.Parse(daylog.DateFormat, c.StartDate); err != nil {
			return fmt.Errorf("bad -start date %q, want YYYY-MM-DD", c.StartDate)
		}
		if _, err := time.Parse(daylog.DateFormat, c.EndDate); err != nil {
			return fmt.Errorf("bad -end date %q, want YYYY-MM-DD", c.EndDate)
		}
		if c.Format != "csv" && c.Format != "json" {
			return fmt.Errorf("unknown -format %q (csv, json)", c.Format)
		}
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Mode:       "interactive",
		ConfigPath: "config/config.json",
		EnvFile:    ".env",
		Format:     "csv",
		Schedule:   true,
	}
}
