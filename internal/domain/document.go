package domain

// Document is one encoded row bound for an index, identified by its ordinal
// position in the uploaded file (0-based, header excluded).
type Document struct {
	Ordinal int
	Data    []byte
}
