/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/authcore/apiserver/cmd"

func main() {
	cmd.Execute()
}
