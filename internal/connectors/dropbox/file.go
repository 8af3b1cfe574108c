package dropbox

import (
	"net/url"
	"path"
	"strings"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// ExportFormatMarkdown is the format Paper documents are exported to.
const ExportFormatMarkdown = "markdown"

// mimeTypes maps file extensions to MIME types.
var mimeTypes = map[string]string{
	".txt":   "text/plain",
	".md":    "text/markdown",
	".html":  "text/html",
	".htm":   "text/html",
	".css":   "text/css",
	".csv":   "text/csv",
	".xml":   "application/xml",
	".json":  "application/json",
	".yaml":  "application/x-yaml",
	".yml":   "application/x-yaml",
	".pdf":   "application/pdf",
	".doc":   "application/msword",
	".docx":  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":   "application/vnd.ms-excel",
	".xlsx":  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":   "application/vnd.ms-powerpoint",
	".pptx":  "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".png":   "image/png",
	".gif":   "image/gif",
	".svg":   "image/svg+xml",
	".webp":  "image/webp",
	".zip":   "application/zip",
	".tar":   "application/x-tar",
	".gz":    "application/gzip",
	".paper": "application/vnd.dropbox.paper",
}

// getMIMEType guesses a MIME type from the file extension.
func getMIMEType(name string) string {
	if mt, ok := mimeTypes[strings.ToLower(path.Ext(name))]; ok {
		return mt
	}
	return "application/octet-stream"
}

// isExportOnly reports whether a file has no downloadable bytes (Paper docs).
func isExportOnly(file *files.FileMetadata) bool {
	if file.ExportInfo != nil && file.ExportInfo.ExportAs != "" {
		return true
	}
	return !file.IsDownloadable && strings.HasSuffix(strings.ToLower(file.Name), ".paper")
}

// FileToRemoteItem converts file metadata to a RemoteItem.
func FileToRemoteItem(file *files.FileMetadata) domain.RemoteItem {
	return domain.RemoteItem{
		ID:          file.PathLower,
		Name:        file.Name,
		MediaType:   getMIMEType(file.Name),
		ModifiedAt:  file.ServerModified.UTC(),
		Fingerprint: file.ContentHash,
		Size:        int64(file.Size),
		Path:        file.PathDisplay,
		WebURL:      webURL(file.PathDisplay),
		Native:      isExportOnly(file),
	}
}

// DeletedToRemoteItem converts a deleted entry to a deletion.
func DeletedToRemoteItem(entry *files.DeletedMetadata) domain.RemoteItem {
	return domain.RemoteItem{
		ID:      entry.PathLower,
		Name:    entry.Name,
		Path:    entry.PathDisplay,
		Deleted: true,
	}
}

// ShouldSyncFile checks if a file should be synced based on config.
func ShouldSyncFile(file *files.FileMetadata, cfg *Config) bool {
	if file == nil {
		return false
	}
	if len(cfg.MimeTypeFilter) == 0 {
		return true
	}
	mimeType := getMIMEType(file.Name)
	for _, filter := range cfg.MimeTypeFilter {
		if strings.HasSuffix(filter, "/") && strings.HasPrefix(mimeType, filter) {
			return true
		}
		if mimeType == filter {
			return true
		}
	}
	return false
}

// webURL links to the file in the Dropbox web UI.
func webURL(pathDisplay string) string {
	if pathDisplay == "" {
		return "https://www.dropbox.com/home"
	}
	return "https://www.dropbox.com/home/" + url.PathEscape(strings.TrimPrefix(pathDisplay, "/"))
}
