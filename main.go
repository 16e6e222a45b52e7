package main

import "github.com/Tiliavir/trivial-pay-tracker/cmd"

func main() {
	cmd.Execute()
}
