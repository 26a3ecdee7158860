package main

import "github.com/kic113/site/cmd"

func main() {
	cmd.Execute()
}
