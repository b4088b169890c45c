package main

import "fitquest/cmd"

func main() {
	cmd.Execute()
}
