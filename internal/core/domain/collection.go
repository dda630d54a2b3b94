package domain

import "strings"

// ActFolderKind is a subfolder of an act directory holding one collection.
type ActFolderKind string

// Act folder kinds, named after the subdirectories of acts_root/<act>/.
const (
	ActBase      ActFolderKind = "base"
	ActAmendment ActFolderKind = "amendment"
)

// ActFolderKinds lists the act subfolders in discovery order.
var ActFolderKinds = []ActFolderKind{ActBase, ActAmendment}

// CollectionName returns the collection for an act folder,
// e.g. ("Civil Aviation Act", base) -> "Civil_Aviation_Act-Base".
func CollectionName(act string, kind ActFolderKind) string {
	name := strings.ReplaceAll(strings.TrimSpace(act), " ", "_")
	switch kind {
	case ActAmendment:
		return name + "-Amendment"
	default:
		return name + "-Base"
	}
}

// Collection is a named partition of the embedding index.
type Collection struct {
	Name      string
	Processed bool
	Documents []Document
}

// SourceDir pairs a directory of PDFs with the collection it feeds.
type SourceDir struct {
	Path       string `toml:"path"`
	Collection string `toml:"collection"`
}
