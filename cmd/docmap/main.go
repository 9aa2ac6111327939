/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/ssargent/docmap/cmd/docmap/cmd"

func main() {
	cmd.Execute()
}
