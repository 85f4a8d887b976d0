package infra

import (
	"fmt"
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Recover must be deferred. It logs a panic with its origin and hands the value to onPanic.
func Recover(entry *log.Entry, id string, onPanic func(r any)) {
	r := recover()
	if r == nil {
		return
	}
	if entry == nil {
		entry = log.NewEntry(log.StandardLogger())
	}
	entry.WithFields(log.Fields{
		"job":    id,
		"origin": identifyPanic(),
	}).Errorf("panic recovered: %v", r)
	if onPanic != nil {
		onPanic(r)
	}
}

func identifyPanic() string {
	var name, file string
	var line int
	var pc [16]uintptr

	n := runtime.Callers(3, pc[:])
	for _, pc := range pc[:n] {
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		file, line = fn.FileLine(pc)
		name = fn.Name()
		if !strings.HasPrefix(name, "runtime.") && !strings.HasSuffix(name, "infra.Recover") {
			break
		}
	}

	switch {
	case name != "":
		return fmt.Sprintf("%v:%v", name, line)
	case file != "":
		return fmt.Sprintf("%v:%v", file, line)
	}

	return fmt.Sprintf("pc:%x", pc)
}
