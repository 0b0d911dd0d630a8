package main

import "github.com/mystichronicle/visionnav-setup/cmd/visionnav-setup/cmd"

func main() {
	cmd.Execute()
}
