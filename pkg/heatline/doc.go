// Package heatline embeds an on-demand CPU profiling control server into a
// Go application.
//
// The server owns a sampling profiler for the current process and exposes its
// lifecycle over HTTP:
//
//	GET  /info   -> {"running": false}
//	POST /start  -> {"ok": true}
//	POST /stop   -> {"name": "(root)", "children": [...], ...}
//
// Basic integration:
//
//	import "github.com/coral-mesh/heatline/pkg/heatline"
//
//	func main() {
//	    srv, err := heatline.Start(-1, heatline.Options{SamplingInterval: 500})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer srv.Close()
//
//	    // Your application code
//	    http.ListenAndServe(":8080", handler)
//	}
//
// Only one profile can be collected at a time: a second /start while
// running and a /stop while idle are rejected with 400. Engine returns the
// underlying profiler for direct use; calls made through it bypass those
// checks.
package heatline
