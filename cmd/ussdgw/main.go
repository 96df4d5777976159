// Command ussdgw runs the USSD session gateway.
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/ussdgw/cmd/ussdgw/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
