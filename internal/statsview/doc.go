// Package statsview serves live runtime statistics (heap, goroutines, GC
// pauses) over HTTP while the emulator runs. The server is only compiled in
// with the statsview build tag:
//
//	go build -tags statsview ./cmd/goapple
//
// Charts are then served at <addr>/debug/statsview and the standard pprof
// handlers at <addr>/debug/pprof/.
package statsview
