package main

import (
	"github.com/njyeung/kplay/cmd"
	"github.com/njyeung/kplay/config"
	"github.com/njyeung/kplay/log"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	cmd.Execute()
}
