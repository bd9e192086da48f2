package main

import "github.com/sw33tLie/scopediff/cmd"

func main() {
	cmd.Execute()
}
