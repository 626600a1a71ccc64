package main

import (
	"go.brendoncarroll.net/star"

	"pugvm.org/pugvm/pvmcmd"
)

func main() {
	star.Main(pvmcmd.Root())
}
