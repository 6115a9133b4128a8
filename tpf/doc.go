// Package tpf implements an encoder and decoder for TPF, a line-oriented,
// human-readable RGB raster format.
//
// A TPF document is a header line followed by pixel records:
//
//	1 4x2
//	(0,0) (255,0,0)
//	(1,0,3) (255,255,255)
//	(0,1,4) (0,0,0)
//
// The header carries an optional version token and the raster dimensions.
// Each record sets either a single pixel "(x,y) (r,g,b)" or a horizontal
// run of n pixels "(x,y,n) (r,g,b)" that never crosses a row.
//
// Decoding is tolerant: a malformed header is fatal, but a record that
// cannot be parsed, references pixels outside the raster or carries a
// channel value above 255 is dropped and reported in Result.Skipped while
// the rest of the document still applies. Cells that no record writes keep
// the decoder's fill color, White unless Decoder.Fill says otherwise.
package tpf
