// Package internal provides the verification engine behind tverify.
//
// Key components:
//
// Engine: parses a source file, builds its scope tree, turns every proof
// obligation into a theorem and has the solver decide them in parallel.
// Each obligation yields one Report; an obligation that cannot be encoded
// or solved is reported without stopping the others.
//
// Cache: an on-disk store of solver responses keyed by the hash of the
// query text. CachedTransport puts it in front of any solver transport.
//
// Watcher: re-verifies .go and .gno files as they change.
//
// Usage:
//
//	engine, err := internal.NewEngine(internal.Options{
//	    Transport: solver.NewProcess("z3", logger),
//	    Logger:    logger,
//	})
//	if err != nil {
//	    // handle error
//	}
//
//	reports, err := engine.Run(ctx, "path/to/file.go")
//	if err != nil {
//	    // handle error
//	}
//
//	for _, r := range reports {
//	    fmt.Printf("%s: %s\n", r.Label, r.Status)
//	}
//
// This package is intended for internal use within tverify and should not
// be imported by external packages.
package internal
