// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package paperstore

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// summaryPreviewRunes bounds the summary excerpt in topic listings.
const summaryPreviewRunes = 500

// FoldersMarkdown renders an index of topic folders that hold a paper
// document, for consumption as a read-only resource.
func (s *Store) FoldersMarkdown() string {
	var folders []string
	for _, dir := range s.TopicDirs() {
		if len(s.Load(DisplayTopic(dir))) > 0 {
			folders = append(folders, dir)
		}
	}

	var b strings.Builder
	b.WriteString("# Available Topics\n\n")
	if len(folders) == 0 {
		b.WriteString("No topics found.\n")
		return b.String()
	}
	for _, folder := range folders {
		fmt.Fprintf(&b, "- %s\n", folder)
	}
	b.WriteString("\nUse @<topic> to access papers in that topic.\n")
	return b.String()
}

// TopicMarkdown renders the topic's stored papers as Markdown, with each
// summary truncated to its first 500 characters. Papers are listed in ID
// order for stable output.
func (s *Store) TopicMarkdown(topic string) string {
	records := s.Load(topic)
	if len(records) == 0 {
		return fmt.Sprintf("# No papers found for topic: %s\n\nTry searching for papers on this topic first.", topic)
	}

	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	fmt.Fprintf(&b, "# Papers on %s\n\n", titleCase(DisplayTopic(NormalizeTopic(topic))))
	fmt.Fprintf(&b, "Total papers: %d\n\n", len(records))

	for _, id := range ids {
		rec := records[id]
		fmt.Fprintf(&b, "## %s\n", rec.Title)
		fmt.Fprintf(&b, "- **Paper ID**: %s\n", id)
		fmt.Fprintf(&b, "- **Authors**: %s\n", strings.Join(rec.Authors, ", "))
		fmt.Fprintf(&b, "- **Published**: %s\n", rec.Published)
		fmt.Fprintf(&b, "- **PDF URL**: [%s](%s)\n\n", rec.PDFURL, rec.PDFURL)
		fmt.Fprintf(&b, "### Summary\n%s...\n\n", truncateRunes(rec.Summary, summaryPreviewRunes))
		b.WriteString("---\n\n")
	}
	return b.String()
}

// truncateRunes cuts s to at most n runes without splitting a rune.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// titleCase capitalizes the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
