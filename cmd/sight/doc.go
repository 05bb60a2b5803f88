// Command sight analyzes photos of artworks, monuments and landscapes,
// narrates the result and keeps a browsable history of past analyses.
package main
