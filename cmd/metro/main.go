package main

import "github.com/robert-malhotra/go-metrology/cmd/metro/cmd"

func main() {
	cmd.Execute()
}
