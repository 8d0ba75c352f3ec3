package main

import "github.com/KaramelBytes/mathmatrix/cmd"

func main() {
	cmd.Execute()
}
