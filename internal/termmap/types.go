// Package termmap keeps glossaries of names and fixed terms that must be
// translated the same way in every cue group.
package termmap

// TermMap maps source language terms to target language terms.
type TermMap map[string]string

// MatchResult holds terms that matched against input texts.
type MatchResult struct {
	Matched TermMap
}
