// Package drafting implements the worker-dispatched pipeline stages. Each
// handler reads its input document from the state store, produces the next
// artifact, and writes it back: structuring turns raw source material into
// titled sections, planning derives an ordered outline, and writing assembles
// the final draft from both.
package drafting
