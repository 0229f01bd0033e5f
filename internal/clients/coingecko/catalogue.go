package coingecko

// CatalogueEntry maps one asset display name to its feed identity.
type CatalogueEntry struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Image  string `json:"image"`
}

// Catalogue is the name→feed-identity lookup table. It is built once at
// process start from the feed's coin list and passed by reference to
// everything that needs it; it is never mutated afterwards.
type Catalogue struct {
	byName map[string]CatalogueEntry
}

// NewCatalogue builds a catalogue from feed entries. Later entries with a
// duplicate display name are ignored; the feed lists canonical coins first.
func NewCatalogue(entries []CatalogueEntry) *Catalogue {
	byName := make(map[string]CatalogueEntry, len(entries))
	for _, e := range entries {
		if _, exists := byName[e.Name]; exists {
			continue
		}
		byName[e.Name] = e
	}
	return &Catalogue{byName: byName}
}

// Lookup returns the feed identity for an asset display name.
func (c *Catalogue) Lookup(name string) (CatalogueEntry, bool) {
	e, ok := c.byName[name]
	return e, ok
}

// Size returns the number of catalogued assets.
func (c *Catalogue) Size() int {
	return len(c.byName)
}
