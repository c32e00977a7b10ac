package main

import "library-console/cmd"

func main() {
	cmd.Execute()
}
