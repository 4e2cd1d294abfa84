// Command bund is a small demo application over bundles: a counter, a todo
// list and a simulated remote value loaded through an async action. State
// is restored from and saved to the configured snapshot store around every
// command.
package main

func main() {
	Execute()
}
