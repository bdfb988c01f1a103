// Command detectchat is a terminal client for the sensitive-data detection chat service.
package main

import "github.com/diogo/detectchat/internal/commands"

func main() {
	commands.Execute()
}
