package main

import "github.com/tamara-h/housingML/cmd"

func main() {
	cmd.Execute()
}
