// Package fmtkit provides functionality for building format string
// attacks that write arbitrary bytes to arbitrary memory addresses.
//
// APIs are separated into subpackages, and documented accordingly.
//
// For scripting convenience, "OrExit" functions and methods are provided.
// Any errors encountered by these functions are treated as fatal. In such
// cases, an exit handler function is invoked.
package fmtkit
