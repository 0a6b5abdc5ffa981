// Package main is the entry point for kinoplay.
package main

import (
	"github.com/kinoplay/kinoplay/cmd"
	"github.com/kinoplay/kinoplay/config"
	"github.com/kinoplay/kinoplay/log"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	cmd.Execute()
}
