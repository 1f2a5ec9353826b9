package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"echobot/pkg/config"
	"echobot/pkg/configops"
)

func configCmd(args []string) int {
	if len(args) == 0 {
		configHelp()
		return 0
	}

	switch args[0] {
	case "check":
		return configCheckCmd()
	case "show":
		return configShowCmd()
	case "get":
		return configGetCmd(args[1:])
	case "set":
		return configSetCmd(args[1:])
	default:
		fmt.Printf("Unknown config command: %s\n", args[0])
		configHelp()
		return 1
	}
}

func configHelp() {
	fmt.Println("\nConfig commands:")
	fmt.Println("  check                  Validate current config")
	fmt.Println("  show                   Print effective config with credentials redacted")
	fmt.Println("  get <path>             Get a value from the config file")
	fmt.Println("  set <path> <value>     Set a value in the config file")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  echobot config check")
	fmt.Println("  echobot --config bot.json config set use_telegram true")
	fmt.Println("  echobot --config bot.json config get telegram.poll_interval_ms")
	fmt.Println("  echobot --config bot.json config show")
}

func configCheckCmd() int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		return 1
	}

	if err := config.Check(cfg); err != nil {
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) {
			fmt.Println("✗ Config validation failed:")
			for _, p := range cfgErr.Problems {
				fmt.Printf("  - %v\n", p)
			}
		} else {
			fmt.Printf("✗ Config validation failed: %v\n", err)
		}
		return 1
	}
	fmt.Printf("✓ Config valid (platform: %s)\n", cfg.Platform())
	return 0
}

func configShowCmd() int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		return 1
	}

	data, err := json.MarshalIndent(cfg.Redacted(), "", "  ")
	if err != nil {
		fmt.Printf("Error encoding config: %v\n", err)
		return 1
	}
	fmt.Println(string(data))
	return 0
}

func configFilePath() (string, bool) {
	path := getConfigPath()
	if path == "" {
		fmt.Println("Error: no config file; pass --config <path> or set ECHOBOT_CONFIG")
		return "", false
	}
	return path, true
}

func configGetCmd(args []string) int {
	if len(args) < 1 {
		fmt.Println("Usage: echobot config get <path>")
		return 1
	}
	configPath, ok := configFilePath()
	if !ok {
		return 1
	}

	cfgMap, err := configops.LoadAsMap(configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		return 1
	}

	path := configops.NormalizePath(args[0])
	value, found := configops.GetByPath(cfgMap, path)
	if !found {
		fmt.Printf("Path not found: %s\n", path)
		return 1
	}

	data, err := json.Marshal(value)
	if err != nil {
		fmt.Printf("%v\n", value)
		return 0
	}
	fmt.Println(string(data))
	return 0
}

func configSetCmd(args []string) int {
	if len(args) < 2 {
		fmt.Println("Usage: echobot config set <path> <value>")
		return 1
	}
	configPath, ok := configFilePath()
	if !ok {
		return 1
	}

	value := strings.Join(args[1:], " ")
	backupPath, err := configops.Set(configPath, args[0], value)
	if err != nil {
		fmt.Printf("Error setting value: %v\n", err)
		return 1
	}

	fmt.Printf("✓ Updated %s = %v\n", configops.NormalizePath(args[0]), configops.ParseValue(value))
	if backupPath != "" {
		fmt.Printf("  previous config saved to %s\n", backupPath)
	}
	return 0
}
