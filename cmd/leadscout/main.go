// Command leadscout searches for business leads and scrapes their websites
// for contact details.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
