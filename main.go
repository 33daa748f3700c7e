package main

import "github.com/shellhound/shellhound/cmd/shellhound"

func main() { shellhound.Execute() }
