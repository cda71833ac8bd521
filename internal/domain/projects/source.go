package projects

import (
	"encoding/json"
	"fmt"
)

// SourceType tags the Source variant.
type SourceType string

const (
	SourceGitHub      SourceType = "github"
	SourceUpload      SourceType = "upload"
	SourceGoogleDrive SourceType = "google-drive"
)

// Source is a tagged variant: a repository reference (URL), an uploaded
// document (Name + Content resolved client-side) or a drive reference which
// is stored but not analysed yet.
type Source struct {
	Type    SourceType `json:"type"`
	Name    string     `json:"name"`
	URL     string     `json:"url,omitempty"`
	Content string     `json:"content,omitempty"`
}

func GitHubSource(url string) Source {
	return Source{Type: SourceGitHub, Name: url, URL: url}
}

func UploadSource(name, content string) Source {
	return Source{Type: SourceUpload, Name: name, Content: content}
}

// Validate checks the fields each variant needs.
func (s Source) Validate() error {
	switch s.Type {
	case SourceGitHub, SourceGoogleDrive:
		if s.URL == "" {
			return fmt.Errorf("%s source requires url", s.Type)
		}
	case SourceUpload:
		if s.Name == "" {
			return fmt.Errorf("upload source requires name")
		}
	default:
		return fmt.Errorf("unknown source type: %q", s.Type)
	}
	return nil
}

// MarshalSources encodes sources for the sources_json column.
func MarshalSources(src []Source) (string, error) {
	if src == nil {
		src = []Source{}
	}
	b, err := json.Marshal(src)
	if err != nil {
		return "", fmt.Errorf("marshal sources: %w", err)
	}
	return string(b), nil
}

func UnmarshalSources(raw string) ([]Source, error) {
	if raw == "" {
		return nil, nil
	}
	var out []Source
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("unmarshal sources: %w", err)
	}
	return out, nil
}
