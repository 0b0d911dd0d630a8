package main

import "github.com/mystichronicle/visionnav-setup/cmd/visionnav-models/cmd"

func main() {
	cmd.Execute()
}
