// Command topiclog runs the topiclog server and provides demo and inspection commands.
package main

import (
	"fmt"
	"os"

	"github.com/vnykmshr/topiclog/pkg/topiclog"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	var err error
	switch command {
	case "serve":
		err = runServe()
	case "demo":
		err = runDemo(os.Args[2:])
	case "config":
		err = runConfig()
	case "version":
		fmt.Printf("topiclog version %s\n", topiclog.Version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("topiclog - In-memory publish/subscribe topic log")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  topiclog <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                          Run the HTTP/WebSocket server")
	fmt.Println("  demo [messages]                Run producers and subscribers in-process")
	fmt.Println("  config                         Print the effective configuration")
	fmt.Println("  version                        Show version information")
	fmt.Println("  help                           Show this help message")
	fmt.Println()
	fmt.Println("Configuration is read from TOPICLOG_* environment variables and an optional .env file.")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  TOPICLOG_HTTP_ADDR=:9000 TOPICLOG_TOPICS=orders,payments topiclog serve")
	fmt.Println("  topiclog demo 20")
}
