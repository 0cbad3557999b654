// Package main implements the topicbind CLI tool.
// It provides lifecycle commands for reconciling Lambda subscriptions against
// externally-owned SNS topics.
package main

import "github.com/topicbind/topicbind/cmd/topicbind/cmd"

func main() {
	cmd.Execute()
}
