package entity

type DownloadStatus string

const (
	DownloadSaved             DownloadStatus = "saved"
	DownloadSkippedInvalidURL DownloadStatus = "skipped_invalid_url"
	DownloadSkippedConnection DownloadStatus = "skipped_connection"
)

// DownloadResult is the outcome of one image url.
type DownloadResult struct {
	URL    string         `json:"url"`
	Status DownloadStatus `json:"status"`
	Path   string         `json:"path,omitempty"` // Set only when Status is DownloadSaved
}

func (r DownloadResult) Saved() bool {
	return r.Status == DownloadSaved
}
