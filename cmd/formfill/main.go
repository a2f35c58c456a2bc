package main

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/untillpro/goutils/cobrau"
)

//go:embed version
var version string

func main() {
	if err := execRootCmd(os.Args, strings.TrimSpace(version)); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func execRootCmd(args []string, ver string) error {
	rootCmd := cobrau.PrepareRootCmd(
		"formfill",
		"validate and fill app forms from their layouts, data model and rules",
		args,
		ver,
		newValidateCmd(),
		newGroupsCmd(),
		newHiddenCmd(),
		newFillCmd(),
	)

	return cobrau.ExecCommandAndCatchInterrupt(rootCmd)
}
