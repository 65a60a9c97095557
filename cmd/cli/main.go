package main

import "github.com/LENAX/email-scheduler/pkg/cli/cmd"

func main() {
	cmd.Execute()
}
