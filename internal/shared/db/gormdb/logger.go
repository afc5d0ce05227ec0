package gormdb

import (
	"fmt"
	"strings"
	"time"

	"github.com/deliverykit/calsync/internal/shared/logutil"
)

type logger struct {
	log logutil.Log
}

// Print receives gorm's positional log values: level, source, then either
// (duration, sql, vars, rows) for "sql" or the message parts otherwise.
func (lg logger) Print(values ...interface{}) {
	if len(values) < 2 {
		return
	}

	level, _ := values[0].(string)
	if level != "sql" {
		lg.log.Warnf("%s", strings.TrimSpace(fmt.Sprint(values[2:]...)))
		return
	}

	if len(values) < 5 {
		return
	}

	d, _ := values[2].(time.Duration)
	sql, _ := values[3].(string)
	lg.log.Infof("[%.2fms] %s %v", float64(d.Nanoseconds())/1e6, sql, values[4])
}
