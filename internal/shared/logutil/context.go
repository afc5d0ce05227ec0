package logutil

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
)

// Context is appended to every message as sorted key=value pairs.
type Context map[string]interface{}

func WrapLogWithContext(log Log, lctx Context) Log {
	return contextLog{
		lctx: lctx,
		log:  log,
	}
}

type contextLog struct {
	lctx Context
	log  Log
}

func (lctx Context) String() string {
	if len(lctx) == 0 {
		return ""
	}

	keys := make([]string, 0, len(lctx))
	for k := range lctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", color.YellowString(k), lctx[k]))
	}
	return "[" + strings.Join(pairs, " ") + "]"
}

// message formats before appending the context so that values containing
// '%' are printed as is.
func (cl contextLog) message(format string, args []interface{}) string {
	msg := fmt.Sprintf(format, args...)
	if ctx := cl.lctx.String(); ctx != "" {
		msg += " " + ctx
	}
	return msg
}

func (cl contextLog) Fatalf(format string, args ...interface{}) {
	cl.log.Fatalf("%s", cl.message(format, args))
}

func (cl contextLog) Errorf(format string, args ...interface{}) {
	cl.log.Errorf("%s", cl.message(format, args))
}

func (cl contextLog) Warnf(format string, args ...interface{}) {
	cl.log.Warnf("%s", cl.message(format, args))
}

func (cl contextLog) Infof(format string, args ...interface{}) {
	cl.log.Infof("%s", cl.message(format, args))
}

func (cl contextLog) Debugf(key string, format string, args ...interface{}) {
	cl.log.Debugf(key, "%s", cl.message(format, args))
}

func (cl contextLog) Child(name string) Log {
	return WrapLogWithContext(cl.log.Child(name), cl.lctx)
}

func (cl contextLog) SetLevel(level LogLevel) {
	cl.log.SetLevel(level)
}
