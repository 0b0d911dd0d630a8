package main

import "github.com/mystichronicle/visionnav-setup/cmd/visionnav-packager/cmd"

func main() {
	cmd.Execute()
}
