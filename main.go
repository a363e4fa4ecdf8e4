package main

import "github.com/diogo/chatdrawer/internal/commands"

func main() {
	commands.Execute()
}
