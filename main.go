package main

import "github.com/stuttgart-things/snyk-cleanup/cmd"

func main() {
	cmd.Execute()
}
