// Package jsonscan extracts top-level array elements from very large JSON
// documents without decoding the whole document.
//
// A Scanner reads its source in fixed-size chunks and walks the bytes with a
// quote and escape aware state machine. Callers first position the scanner with
// Locate (a raw substring search for a key token), optionally jump over
// irrelevant arrays with SkipArray, and then receive each element of the target
// array as verbatim text through Elements. Returning Stop from the element
// callback ends the scan immediately so no further bytes are read.
//
// Memory use is bounded by one chunk, a token-sized tail and the single element
// currently being captured.
package jsonscan
