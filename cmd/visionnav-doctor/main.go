package main

import "github.com/mystichronicle/visionnav-setup/cmd/visionnav-doctor/cmd"

func main() {
	cmd.Execute()
}
