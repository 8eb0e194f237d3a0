// Package compile is the compilation dispatcher.
//
// Compile picks one of three emission paths from the concrete type of the
// session's compilation, never from the language name:
//
//   - functional: the checker writes into a virtual file; only errors are
//     forwarded and success means the file is non-empty.
//   - scripting: the backend closes the documentation writer it is given, so
//     it gets a scratch buffer whose bytes are copied out after Emit.
//   - default: any backend.Emitter; its result is used as is.
//
// Every path ends in the same Result.
package compile
