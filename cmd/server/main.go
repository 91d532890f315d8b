// Package main runs the chat relay service until it receives SIGINT or SIGTERM.
package main

import (
	"os"

	"chat-relay/internal/app"
)

func main() {
	os.Exit(app.Run())
}
