// Command purity sends FUDI messages and patches to a running Pure Data
// instance, optionally launching it first.
package main

import "github.com/wagiedev/purity-go/cmd/purity/command"

func main() {
	command.Execute()
}
