// Command quicktablectl administers a QuickTable database from the shell:
// seeding restaurants, inspecting slots and reservations, exporting, and
// requeueing failed forward tasks.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
