// Package drain copies the stdout or stderr stream of a live external
// process into a caller-supplied callback without blocking the caller.
//
// The Handler owns two fixed-size worker pools: the reader pool runs drain
// tasks (poll liveness, pause, bounded read, dispatch) and the callback pool
// runs the caller's callback, so a slow callback never stalls scheduled
// reads. Draining is fire-and-forget: the entry points return a Result
// sentinel immediately and no handle to the background work is retained.
//
// The package never starts or stops processes. Callers hand it a Process
// collaborator for something that is already running:
//
//	h, err := drain.New(drain.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
//
//	switch h.DrainStdout(proc, func(chunk string) { fmt.Print(chunk) }) {
//	case drain.IgnoreDeadProcess:
//	    // process was already gone, nothing scheduled
//	case drain.Handling:
//	    // chunks will arrive on the callback until the process dies
//	}
//
// A drain task ends itself when its process dies or a read fails; both are
// logged and swallowed because the entry point already returned before
// either condition could occur. Output produced between the last liveness
// poll and the actual death of the process may be lost; delivery is
// best-effort, not exactly-once.
package drain
