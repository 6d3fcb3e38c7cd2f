package main

import "termsync/cmd/server/cmd"

func main() {
	cmd.Execute()
}
