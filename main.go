package main

import "github.com/Bitlatte/pageserve/cmd"

func main() {
	cmd.Execute()
}
