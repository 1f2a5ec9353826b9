package main

import (
	"context"
	"fmt"

	"echobot/pkg/channels"
)

const defaultSendText = "This is a test message from echobot"

func sendHelp() {
	fmt.Println("\nSend options:")
	fmt.Println("  --to             Destination chat/channel ID")
	fmt.Println("  -m, --message    Message to send")
}

type sendOptions struct {
	to      string
	message string
}

func parseSendArgs(args []string) sendOptions {
	opts := sendOptions{message: defaultSendText}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--to":
			if i+1 < len(args) {
				opts.to = args[i+1]
				i++
			}
		case "-m", "--message":
			if i+1 < len(args) {
				opts.message = args[i+1]
				i++
			}
		}
	}
	return opts
}

func sendCmd(args []string) int {
	opts := parseSendArgs(args)
	if opts.to == "" {
		fmt.Println("Error: --to is required")
		sendHelp()
		return 1
	}

	cfg, err := loadValidConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		return 1
	}

	log, err := buildLogger(cfg.Logging)
	if err != nil {
		fmt.Printf("Error configuring logging: %v\n", err)
		return 1
	}
	defer log.Close()

	transport, err := channels.NewTransport(cfg, log)
	if err != nil {
		fmt.Printf("Error creating %s transport: %v\n", cfg.Platform(), err)
		return 1
	}

	// Both platforms deliver over REST, so no receive loop is needed.
	if err := transport.SendMessage(context.Background(), opts.message, opts.to); err != nil {
		fmt.Printf("✗ Failed to send (%s): %v\n", channels.Classify(err), err)
		return 1
	}
	fmt.Printf("✓ Message sent to %s via %s\n", opts.to, transport.Name())
	return 0
}
