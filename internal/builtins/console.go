package builtins

import (
	"strings"
	"time"

	"github.com/cwbudde/go-ecma/internal/runtime"
)

// consoleState carries the group indentation, counters, and timers of one
// realm's console.
type consoleState struct {
	depth    int
	counters map[string]int
	timers   map[string]time.Time
}

// setupConsole wires the console built-in. All output routes through the
// realm's injectable logger; a realm without one drops console output.
func setupConsole(r *runtime.Realm) {
	c := r.NewPlainObject()
	c.SetClass("console")
	defValue(r, r.Global, "console", runtime.ObjectValue(c), runtime.AttrWritable|runtime.AttrConfigurable)

	state := &consoleState{
		counters: make(map[string]int),
		timers:   make(map[string]time.Time),
	}

	emit := func(level string, args []runtime.Value) error {
		if r.Logger == nil {
			return nil
		}
		parts := make([]string, 0, len(args))
		for _, a := range args {
			parts = append(parts, formatConsoleValue(r, a))
		}
		r.Logger.Log(level, state.depth, strings.Join(parts, " "))
		return nil
	}

	for _, level := range []string{"log", "info", "warn", "error", "debug", "trace"} {
		lv := level
		defFn(r, c, level, 0, func(call *runtime.NativeCall) (runtime.Value, error) {
			return runtime.Undefined(), emit(lv, call.Args)
		})
	}

	defFn(r, c, "dir", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		return runtime.Undefined(), emit("dir", call.Args)
	})

	defFn(r, c, "assert", 2, func(call *runtime.NativeCall) (runtime.Value, error) {
		if runtime.ToBoolean(call.Arg(0)) {
			return runtime.Undefined(), nil
		}
		rest := call.Args
		if len(rest) > 0 {
			rest = rest[1:]
		}
		msg := append([]runtime.Value{runtime.StringValue(r.Intern("Assertion failed:"))}, rest...)
		return runtime.Undefined(), emit("error", msg)
	})

	defFn(r, c, "count", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		label := consoleLabel(r, call.Arg(0))
		state.counters[label]++
		return runtime.Undefined(), emit("count", []runtime.Value{
			runtime.StringValue(r.Intern(label + ": " + runtime.NumberToString(float64(state.counters[label])))),
		})
	})
	defFn(r, c, "countReset", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		delete(state.counters, consoleLabel(r, call.Arg(0)))
		return runtime.Undefined(), nil
	})

	defFn(r, c, "group", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		if err := emit("group", call.Args); err != nil {
			return runtime.Undefined(), err
		}
		state.depth++
		return runtime.Undefined(), nil
	})
	defFn(r, c, "groupEnd", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		if state.depth > 0 {
			state.depth--
		}
		return runtime.Undefined(), nil
	})

	defFn(r, c, "time", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		state.timers[consoleLabel(r, call.Arg(0))] = time.Now()
		return runtime.Undefined(), nil
	})
	timeReport := func(call *runtime.NativeCall, stop bool) (runtime.Value, error) {
		label := consoleLabel(r, call.Arg(0))
		start, ok := state.timers[label]
		if !ok {
			return runtime.Undefined(), emit("warn", []runtime.Value{
				runtime.StringValue(r.Intern("Timer '" + label + "' does not exist")),
			})
		}
		elapsed := time.Since(start)
		if stop {
			delete(state.timers, label)
		}
		return runtime.Undefined(), emit("time", []runtime.Value{
			runtime.StringValue(r.Intern(label + ": " + elapsed.String())),
		})
	}
	defFn(r, c, "timeLog", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		return timeReport(call, false)
	})
	defFn(r, c, "timeEnd", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		return timeReport(call, true)
	})
}

func consoleLabel(r *runtime.Realm, v runtime.Value) string {
	if v.IsUndefined() {
		return "default"
	}
	s, err := runtime.ToString(r, v)
	if err != nil {
		return "default"
	}
	return s.String()
}

// formatConsoleValue renders one console argument: strings print bare,
// everything else uses the diagnostic form.
func formatConsoleValue(r *runtime.Realm, v runtime.Value) string {
	if v.IsString() {
		return v.Str().String()
	}
	return v.Inspect()
}
