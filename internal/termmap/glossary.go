package termmap

import (
	"sync"

	"github.com/MimeLyc/sentence-sub-translator/pkg/log"
)

// Glossary serves the term maps of one directory, loaded lazily per target
// language and kept in memory.
type Glossary struct {
	dir string

	mu    sync.Mutex
	cache map[string]TermMap
}

func NewGlossary(dir string) *Glossary {
	return &Glossary{
		dir:   dir,
		cache: make(map[string]TermMap),
	}
}

// Lookup returns the glossary entries for targetLang that occur in text.
func (g *Glossary) Lookup(text, targetLang string) TermMap {
	return Match(g.forTarget(targetLang), []string{text}).Matched
}

// Reload drops the cached maps so the next lookup reads the files again.
func (g *Glossary) Reload() {
	g.mu.Lock()
	g.cache = make(map[string]TermMap)
	g.mu.Unlock()
}

func (g *Glossary) forTarget(targetLang string) TermMap {
	key := normalizeLanguageCode(targetLang)

	g.mu.Lock()
	defer g.mu.Unlock()
	if tm, ok := g.cache[key]; ok {
		return tm
	}
	tm, err := LoadForTarget(g.dir, targetLang)
	if err != nil {
		log.Warn("Failed to load term maps for %s from %s: %v", key, g.dir, err)
		tm = TermMap{}
	}
	g.cache[key] = tm
	return tm
}
