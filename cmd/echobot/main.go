// EchoBot - reply to every chat message on Discord or Telegram
// License: MIT
//
// Copyright (c) 2026 EchoBot contributors

package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

var (
	globalConfigPathOverride string
	globalEnvFileOverride    string
	globalDebug              bool
)

func main() {
	globalConfigPathOverride = detectFlagValue(os.Args, "--config")
	globalEnvFileOverride = detectFlagValue(os.Args, "--env-file")
	globalDebug = hasDebugFlag(os.Args)

	os.Args = normalizeCLIArgs(os.Args)

	command := "run"
	if len(os.Args) >= 2 {
		command = os.Args[1]
	}

	switch command {
	case "run":
		os.Exit(runCmd())
	case "send":
		os.Exit(sendCmd(os.Args[2:]))
	case "config":
		os.Exit(configCmd(os.Args[2:]))
	case "version", "--version", "-v":
		fmt.Printf("echobot v%s\n", version)
	case "help", "--help", "-h":
		printHelp()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printHelp()
		os.Exit(1)
	}
}
