package model

// SearchQuery identifies a file by its storage-side numeric id inside a user's file tree.
type SearchQuery struct {
	FileID    int64
	UserScope string
}

// SearchResult is what a property-search response resolves to. When the response holds
// more than one match, the first href and the first displayname in document order are
// taken independently of each other.
type SearchResult struct {
	DownloadPath string
	DisplayName  string
}

// RemoteFile is a downloaded file. It lives only for one pipeline run.
type RemoteFile struct {
	Path string
	Data []byte
}
