package pvmcmd

import (
	"fmt"
	"io"
	"strconv"

	"go.brendoncarroll.net/star"

	"pugvm.org/pugvm/spec"
)

var opsCmd = star.Command{
	Metadata: star.Metadata{
		Short: "list the instruction set",
	},
	F: func(c star.Context) error {
		return printOps(c.StdOut)
	},
}

func printOps(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%-3s %-16s %-8s %3s %3s\n", "#", "OP", "OPERAND", "IN", "OUT"); err != nil {
		return err
	}
	for _, op := range spec.All() {
		info := op.Info()
		if _, err := fmt.Fprintf(w, "%-3d %-16s %-8v %3s %3s\n", op, op.MustName(), info.Operand, effect(info.In), effect(info.Out)); err != nil {
			return err
		}
	}
	return nil
}

func effect(n int) string {
	if n < 0 {
		return "?"
	}
	return strconv.Itoa(n)
}
