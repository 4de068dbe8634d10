// Package types defines the data structures shared by the walker, classifier and executor.
package types

type (
	// Child is one entry of a folder listing as returned by the storage API.
	Child struct {
		URI    string `json:"uri"`
		Folder bool   `json:"folder"`
	}

	// DirectoryNode is the storage API answer for a single path. Folders carry
	// Children, files carry Created and LastModified.
	DirectoryNode struct {
		Repo         string   `json:"repo,omitempty"`
		Path         string   `json:"path"`
		URI          string   `json:"uri"`
		Created      string   `json:"created,omitempty"`
		LastModified string   `json:"lastModified,omitempty"`
		Children     []Child  `json:"children,omitempty"`
		Errors       []Status `json:"errors,omitempty"`
	}

	// Status is an entry of the "errors" array the server sends instead of data.
	Status struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	}
)

// IsFolder reports whether the node describes a folder listing.
func (n *DirectoryNode) IsFolder() bool {
	return n != nil && n.Children != nil
}

// Timestamp returns the timestamp for the requested field, or "" when absent.
func (n *DirectoryNode) Timestamp(field TimestampField) string {
	if n == nil {
		return ""
	}
	if field == FieldLastModified {
		return n.LastModified
	}
	return n.Created
}

// TimestampField selects which node timestamp feeds the catalog.
type TimestampField string

const (
	FieldCreated      TimestampField = "created"
	FieldLastModified TimestampField = "lastModified"
)
