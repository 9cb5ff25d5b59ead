package commands

import "testing"

func TestRoot_DatabaseURLFlagOnAllCommands(t *testing.T) {
	// The DSN flag lives on the root command so both scrape and serve
	// accept it; serve's missing-database error tells users to set it.
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() != "scrape" && cmd.Name() != "serve" {
			continue
		}
		if cmd.InheritedFlags().Lookup("database-url") == nil {
			t.Errorf("%s: database-url flag not available", cmd.Name())
		}
	}
}
