package main

import "github.com/justyntemme/shelf/cmd/shelf/cmd"

func main() {
	cmd.Execute()
}
