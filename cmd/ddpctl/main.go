// Command ddpctl talks to a DDP server from the command line: it calls
// methods, follows subscriptions and runs queries through the session engine.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
