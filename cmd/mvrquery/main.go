package main

import (
	"mvr-docstatus/cmd/mvrquery/commands"
	"mvr-docstatus/lib/serviceutil"
)

func main() {
	ctx, cancel := serviceutil.SignalContext()
	defer cancel()
	commands.ExecuteContext(ctx)
}
