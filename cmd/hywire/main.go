/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"github.com/ndegiovanni/hywire/cmd/hywire/cmd"
)

func main() {
	cmd.Execute()
}
