package markdownls

import (
	"log"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// wikilinkRegex matches [[slug]] and [[slug|display text]] patterns.
var wikilinkRegex = regexp.MustCompile(`\[\[([^\]|]+)(?:\|([^\]]+))?\]\]`)

// Wikilink describes one [[slug]] or [[slug|text]] occurrence in a document.
type Wikilink struct {
	Target      string
	DisplayText string
	Line        int
	StartChar   int
	EndChar     int
}

// findWikilinks finds all wikilinks in content.
func findWikilinks(content string) []Wikilink {
	var results []Wikilink
	lines := strings.Split(content, "\n")

	for lineNum, line := range lines {
		matches := wikilinkRegex.FindAllStringSubmatchIndex(line, -1)
		for _, match := range matches {
			if len(match) < 4 {
				continue
			}
			fullMatch := line[match[0]:match[1]]
			groups := wikilinkRegex.FindStringSubmatch(fullMatch)

			target := strings.TrimSpace(groups[1])
			displayText := ""
			if len(groups) > 2 && groups[2] != "" {
				displayText = strings.TrimSpace(groups[2])
			}

			results = append(results, Wikilink{
				Target:      target,
				DisplayText: displayText,
				Line:        lineNum,
				StartChar:   match[0],
				EndChar:     match[1],
			})
		}
	}

	return results
}

// slugify produces the same slug a document's own URI resolves to, so a
// wikilink target can be compared against the indexed slug regardless of
// case or surrounding whitespace.
func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "-")
	return s
}

// admonitionUsageRegex matches a complete admonition opening line: a
// marker followed by its type name. Unlike admonitionMarkerRegex (which
// matches a line still being typed), this only counts lines that already
// name a type, so in-progress edits don't skew usage counts.
var admonitionUsageRegex = regexp.MustCompile(`^\s*(?:\?{3}\+?|!!!)\s+(\S+)`)

// findAdmonitionUsage counts how many times each admonition type is used
// in content, keyed by lowercased type name.
func findAdmonitionUsage(content string) map[string]int {
	usage := make(map[string]int)
	for _, line := range strings.Split(content, "\n") {
		match := admonitionUsageRegex.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		usage[strings.ToLower(match[1])]++
	}
	return usage
}

// PostInfo is the indexed view of one open markdown document.
type PostInfo struct {
	URI             string
	Slug            string
	Title           string
	Wikilinks       []Wikilink
	AdmonitionUsage map[string]int
}

// Index tracks indexed posts by slug and by URI, rebuilt incrementally as
// documents open, change, and close. It is the in-memory stand-in for the
// teacher's workspace-wide post index, scoped here to the documents the
// client has actually opened rather than a full directory walk.
type Index struct {
	logger *log.Logger

	mu              sync.RWMutex
	posts           map[string]*PostInfo // slug -> post
	uriToSlug       map[string]string
	admonitionUsage map[string]int // type name -> workspace-wide count
}

// NewIndex creates an empty Index.
func NewIndex(logger *log.Logger) *Index {
	return &Index{
		logger:          logger,
		posts:           make(map[string]*PostInfo),
		uriToSlug:       make(map[string]string),
		admonitionUsage: make(map[string]int),
	}
}

// Update reindexes a single document by URI and content, replacing any
// previous entry for that URI.
func (idx *Index) Update(uri, content string) {
	title := extractTitle(content)
	slug := slugFromURI(uri)

	post := &PostInfo{
		URI:             uri,
		Slug:            slug,
		Title:           title,
		Wikilinks:       findWikilinks(content),
		AdmonitionUsage: findAdmonitionUsage(content),
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if oldSlug, ok := idx.uriToSlug[uri]; ok {
		if old, ok := idx.posts[oldSlug]; ok {
			idx.subtractUsageLocked(old.AdmonitionUsage)
		}
		delete(idx.posts, oldSlug)
	}
	idx.posts[slug] = post
	idx.uriToSlug[uri] = slug
	idx.addUsageLocked(post.AdmonitionUsage)
}

// Remove drops a document from the index, used on textDocument/didClose
// and when a watched file is reported deleted.
func (idx *Index) Remove(uri string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if slug, ok := idx.uriToSlug[uri]; ok {
		if post, ok := idx.posts[slug]; ok {
			idx.subtractUsageLocked(post.AdmonitionUsage)
		}
		delete(idx.posts, slug)
		delete(idx.uriToSlug, uri)
	}
}

func (idx *Index) addUsageLocked(usage map[string]int) {
	for name, count := range usage {
		idx.admonitionUsage[name] += count
	}
}

func (idx *Index) subtractUsageLocked(usage map[string]int) {
	for name, count := range usage {
		idx.admonitionUsage[name] -= count
		if idx.admonitionUsage[name] <= 0 {
			delete(idx.admonitionUsage, name)
		}
	}
}

// AdmonitionUsage returns how many times each admonition type appears
// across every indexed document, used to rank completions and annotate
// hover text with how established a type already is in the workspace.
func (idx *Index) AdmonitionUsage() map[string]int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	usage := make(map[string]int, len(idx.admonitionUsage))
	for name, count := range idx.admonitionUsage {
		usage[name] = count
	}
	return usage
}

// Resolve looks up a post by wikilink target, matching on slug or title.
func (idx *Index) Resolve(target string) (*PostInfo, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	slug := slugify(target)
	if post, ok := idx.posts[slug]; ok {
		return post, true
	}
	for _, post := range idx.posts {
		if slugify(post.Title) == slug {
			return post, true
		}
	}
	return nil, false
}

// AllSlugs returns every indexed slug, used to build completion lists.
func (idx *Index) AllSlugs() []*PostInfo {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	posts := make([]*PostInfo, 0, len(idx.posts))
	for _, p := range idx.posts {
		posts = append(posts, p)
	}
	return posts
}

func slugFromURI(uri string) string {
	path := strings.TrimPrefix(uri, "file://")
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return slugify(base)
}

// extractTitle returns the first level-1 heading, or the first non-blank
// line if there is no heading.
func extractTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
		return line
	}
	return ""
}
