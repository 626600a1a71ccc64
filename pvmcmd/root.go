// package pvmcmd implements the pugvm command line tool.
package pvmcmd

import (
	"context"
	"strconv"

	"go.brendoncarroll.net/star"
	"go.brendoncarroll.net/stdctx/logctx"
	"go.uber.org/zap"

	"pugvm.org/pugvm/pvmtests"
)

func Root() star.Command {
	return root
}

var root = star.NewDir(star.Metadata{
	Short: "Pug Virtual Machine",
}, map[star.Symbol]star.Command{
	"run":     runCmd,
	"run-all": runAllCmd,
	"ops":     opsCmd,
	"history": historyCmd,
})

var programParam = star.Param[string]{
	Name: "program",
	Parse: func(x string) (string, error) {
		// fail early for unknown names
		if _, err := pvmtests.Lookup(x, 1); err != nil {
			return "", err
		}
		return x, nil
	},
}

// Optional flags are Repeated, so that star does not require them.
// The last value given is used, see loadOr.

var nParam = star.Param[int32]{
	Name:     "n",
	Repeated: true,
	Parse: func(x string) (int32, error) {
		n, err := strconv.ParseInt(x, 10, 32)
		return int32(n), err
	},
}

var traceParam = star.Param[bool]{
	Name:     "trace",
	Repeated: true,
	Parse:    strconv.ParseBool,
}

var maxStepsParam = star.Param[uint64]{
	Name:     "max-steps",
	Repeated: true,
	Parse: func(x string) (uint64, error) {
		return strconv.ParseUint(x, 10, 64)
	},
}

var traceDBParam = star.Param[string]{
	Name:     "trace-db",
	Repeated: true,
	Parse:    star.ParseString,
}

var debugParam = star.Param[bool]{
	Name:     "debug",
	Repeated: true,
	Parse:    strconv.ParseBool,
}

// loadOr returns the last value given for p, or def if p was not given.
func loadOr[T any](c star.Context, p star.Param[T], def T) T {
	if x, ok := p.LoadOpt(c); ok {
		return x
	}
	return def
}

// newContext attaches a logger to the command's context.
// The logger is a development logger if --debug is true, and a production logger otherwise.
func newContext(c star.Context) (context.Context, error) {
	newLogger := zap.NewProduction
	if loadOr(c, debugParam, false) {
		newLogger = zap.NewDevelopment
	}
	log, err := newLogger()
	if err != nil {
		return nil, err
	}
	return logctx.NewContext(c.Context, log), nil
}
