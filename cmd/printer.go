package cmd

import (
	"github.com/fatih/color"
)

// printInfo prints a status line to the screen.
func printInfo(format string, args ...interface{}) {
	color.New(color.FgCyan).Printf("[*] "+format+"\n", args...)
}

// printWarn prints a warning to the screen.
func printWarn(message string) {
	color.New(color.FgYellow, color.Bold).Println("[-] " + message)
}

// printError prints an error to the screen.
func printError(err error) {
	color.New(color.FgRed, color.Bold).Println("[!] " + err.Error())
}

// printAnswer prints the 8-ball's verdict.
func printAnswer(question, answer string) {
	color.New(color.FgWhite).Printf("    %s\n", question)
	color.New(color.FgMagenta, color.Bold).Printf("🎱  %s\n", answer)
}
