// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package paperstore persists paper metadata as one JSON document per
// search topic. Each topic maps to a directory named by a lossy
// normalization of the topic string (lower-cased, spaces to underscores)
// holding a single papers_info.json document: a JSON object from paper ID
// to record, written UTF-8 with 2-space indentation.
//
// Reads treat a missing or corrupt document as empty. Writes rewrite the
// whole document; last writer wins.
package paperstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// InfoFile is the per-topic document name.
const InfoFile = "papers_info.json"

// NormalizeTopic maps a user-facing topic string to its directory name.
// The mapping is deterministic and lossy: case and internal spacing are
// not recoverable from the directory name alone.
func NormalizeTopic(topic string) string {
	return strings.ReplaceAll(strings.ToLower(topic), " ", "_")
}

// DisplayTopic reverses the normalization for display. Original casing is
// not reconstructed.
func DisplayTopic(dir string) string {
	return strings.ReplaceAll(dir, "_", " ")
}

// NotFoundMessage is the fixed human-readable reply for a paper ID absent
// from every topic document.
func NotFoundMessage(paperID string) string {
	return fmt.Sprintf("There's no saved information related to paper %s.", paperID)
}

// Store reads and writes per-topic paper documents under a base directory.
type Store struct {
	// Dir is the base papers directory. Topic subdirectories are created
	// lazily on first save.
	Dir string
}

// Load returns the topic's stored records. A missing topic directory,
// missing document, or corrupt JSON all read as an empty map.
func (s *Store) Load(topic string) map[string]types.PaperRecord {
	path := filepath.Join(s.Dir, NormalizeTopic(topic), InfoFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return map[string]types.PaperRecord{}
	}

	var records map[string]types.PaperRecord
	if err := json.Unmarshal(data, &records); err != nil || records == nil {
		return map[string]types.PaperRecord{}
	}
	return records
}

// Save rewrites the topic's whole document with the given records,
// creating the topic directory if needed.
func (s *Store) Save(topic string, records map[string]types.PaperRecord) error {
	dir := filepath.Join(s.Dir, NormalizeTopic(topic))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating topic directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", InfoFile, err)
	}

	path := filepath.Join(dir, InfoFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Merge upserts the given records into the topic's document: new IDs are
// added, existing IDs are overwritten, nothing is deleted.
func (s *Store) Merge(topic string, records map[string]types.PaperRecord) error {
	existing := s.Load(topic)
	for id, rec := range records {
		existing[id] = rec
	}
	return s.Save(topic, existing)
}

// Extract scans every topic document for the paper ID, first match wins.
// On a hit it returns the record as indented JSON text and true.
func (s *Store) Extract(paperID string) (string, bool) {
	for _, dir := range s.TopicDirs() {
		records := s.Load(DisplayTopic(dir))
		rec, ok := records[paperID]
		if !ok {
			continue
		}
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			continue
		}
		return string(data), true
	}
	return "", false
}

// TopicDirs lists the normalized topic directory names, sorted. A missing
// base directory reads as no topics.
func (s *Store) TopicDirs() []string {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	sort.Strings(dirs)
	return dirs
}

// Topics lists the stored topics as display names.
func (s *Store) Topics() []string {
	var topics []string
	for _, dir := range s.TopicDirs() {
		topics = append(topics, DisplayTopic(dir))
	}
	return topics
}

// Counts returns the number of stored papers per topic. With a non-empty
// topic it counts that topic alone (0 if the topic has no document); with
// an empty topic it counts every topic directory, keyed by display name.
// A document that fails to parse counts as 0.
func (s *Store) Counts(topic string) map[string]int {
	counts := make(map[string]int)

	if topic != "" {
		counts[topic] = len(s.Load(topic))
		return counts
	}

	for _, dir := range s.TopicDirs() {
		counts[DisplayTopic(dir)] = len(s.Load(DisplayTopic(dir)))
	}
	return counts
}
