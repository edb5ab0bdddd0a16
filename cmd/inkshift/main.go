package main

import "github.com/MeKo-Tech/inkshift/cmd/inkshift/cmd"

func main() {
	cmd.Execute()
}
