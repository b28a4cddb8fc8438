package cmd

import (
	_ "tunman/cmd/root"
	_ "tunman/cmd/server"
	_ "tunman/cmd/tunnel"
)
