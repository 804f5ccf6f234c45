/*
Package uri provides a structured, normalized representation of the
identifiers used to address APIs, based on the canonical format
`wrap://authority/path`.

A missing scheme is added during parsing, so `ens/math.eth` and
`wrap://ens/math.eth` denote the same Uri. Two Uris with the same Raw
string are interchangeable everywhere, including as cache keys.

This package also owns redirect patterns: an exact Uri or a glob over
path segments (`wrap://fs/**`, `wrap://ens/*.eth`).
*/
package uri
