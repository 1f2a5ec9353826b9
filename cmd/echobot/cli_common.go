package main

import (
	"fmt"
	"os"
	"strings"

	"echobot/pkg/config"
	"echobot/pkg/logger"
)

const defaultEnvFile = ".env"

// valueFlags take the next argument unless written as --flag=value.
var valueFlags = []string{"--config", "--env-file"}

func normalizeCLIArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := []string{args[0]}
next:
	for i := 1; i < len(args); i++ {
		arg := args[i]
		if arg == "--debug" || arg == "-d" {
			continue
		}
		for _, flag := range valueFlags {
			if arg == flag {
				if i+1 < len(args) {
					i++
				}
				continue next
			}
			if strings.HasPrefix(arg, flag+"=") {
				continue next
			}
		}
		normalized = append(normalized, arg)
	}
	return normalized
}

func detectFlagValue(args []string, flag string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == flag && i+1 < len(args) {
			return strings.TrimSpace(args[i+1])
		}
		if strings.HasPrefix(arg, flag+"=") {
			return strings.TrimSpace(strings.TrimPrefix(arg, flag+"="))
		}
	}
	return ""
}

func hasDebugFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--debug" || arg == "-d" {
			return true
		}
	}
	return false
}

func printHelp() {
	fmt.Printf("echobot - Discord/Telegram echo bot v%s\n\n", version)
	fmt.Println("Usage: echobot [command] [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run         Connect and answer messages (default)")
	fmt.Println("  send        Send one message through the configured platform")
	fmt.Println("  config      Validate or print the effective configuration")
	fmt.Println("  version     Show version information")
	fmt.Println()
	fmt.Println("Global options:")
	fmt.Println("  --config <path>         JSON config file (or ECHOBOT_CONFIG)")
	fmt.Println("  --env-file <path>       .env file to load (default .env)")
	fmt.Println("  --debug, -d             Enable debug logging on the console")
}

// getConfigPath returns "" when no file was requested; defaults and the
// environment are then the only sources.
func getConfigPath() string {
	if strings.TrimSpace(globalConfigPathOverride) != "" {
		return globalConfigPathOverride
	}
	return strings.TrimSpace(os.Getenv("ECHOBOT_CONFIG"))
}

func getEnvFilePath() string {
	if strings.TrimSpace(globalEnvFileOverride) != "" {
		return globalEnvFileOverride
	}
	return defaultEnvFile
}

// loadConfig reads every source but does not validate.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(getEnvFilePath()); err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, err
	}
	if globalDebug {
		cfg.Logging.ConsoleLevel = logger.DEBUG.String()
	}
	return cfg, nil
}

func loadValidConfig() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := config.Check(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildLogger(cfg config.LoggingConfig) (*logger.Logger, error) {
	consoleLevel, err := logger.ParseLevel(cfg.ConsoleLevel)
	if err != nil {
		return nil, err
	}
	fileLevel, err := logger.ParseLevel(cfg.FileLevel)
	if err != nil {
		return nil, err
	}

	opts := logger.Options{
		Console:      os.Stderr,
		ConsoleLevel: consoleLevel,
		FileLevel:    fileLevel,
	}
	if cfg.FileEnabled {
		opts.FilePath = cfg.File
		opts.MaxSizeMB = cfg.MaxSizeMB
		opts.RetentionDays = cfg.RetentionDays
	}

	log, err := logger.New(opts)
	if err != nil {
		// Keep the console sink when the file cannot be opened.
		fmt.Fprintf(os.Stderr, "Warning: failed to enable file logging: %v\n", err)
		opts.FilePath = ""
		return logger.New(opts)
	}
	return log, nil
}
