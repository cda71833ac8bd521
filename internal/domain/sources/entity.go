package sources

// EntryType enum as returned by the tree listing API
type EntryType string

const (
	EntryBlob EntryType = "blob"
	EntryTree EntryType = "tree"
)

// TreeEntry is one row of a recursive repository listing.
type TreeEntry struct {
	Path string    `json:"path"`
	Type EntryType `json:"type"`
	Size *int64    `json:"size,omitempty"`
}

// Reference is a parsed repository reference.
type Reference struct {
	Host  string
	Owner string
	Repo  string
}

func (r Reference) FullName() string { return r.Owner + "/" + r.Repo }
