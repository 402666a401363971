package main

import "ledger-core/cmd/ledger-cli/cmd"

func main() {
	cmd.Execute()
}
