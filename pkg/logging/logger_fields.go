package logging

import (
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Uint32(key string, value uint32) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Component names the subsystem that emitted a message
func Component(name string) Field {
	return String("component", name)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Path(p string) Field {
	return String("path", p)
}

// Clustering field helpers

func RunID(id string) Field {
	return String("run_id", id)
}

func Trial(k int) Field {
	return Int("trial", k)
}

func Seed(seed uint32) Field {
	return Uint32("seed", seed)
}

// Codelength is reported in bits.
func Codelength(bits float64) Field {
	return Float64("codelength", bits)
}

func Modules(n int) Field {
	return Int("modules", n)
}

// Depth is the level in the module hierarchy, 0 being the top.
func Depth(level int) Field {
	return Int("depth", level)
}

func Vertices(n int) Field {
	return Int("vertices", n)
}

func Links(n int) Field {
	return Int("links", n)
}

func Iterations(n int) Field {
	return Int("iterations", n)
}
