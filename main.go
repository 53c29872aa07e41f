package main

import "github.com/santerec/dep-backend/cmd"

func main() {
	cmd.Execute()
}
