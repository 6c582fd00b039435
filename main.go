package main

import "github.com/Manu343726/devector/cmd"

func main() {
	cmd.Execute()
}
