package mysql

import (
	"database/sql"
	"encoding/json"
	"time"

	domain "github.com/bryanwahyu/autoarchitect/internal/domain/projects"
)

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func encodeOptions(o domain.AnalysisOptions) (string, error) {
	b, err := json.Marshal(o)
	return string(b), err
}

func decodeOptions(raw string) (domain.AnalysisOptions, error) {
	var o domain.AnalysisOptions
	if raw == "" {
		return o, nil
	}
	err := json.Unmarshal([]byte(raw), &o)
	return o, err
}

// encodeSummary returns NULL for results without a summary
func encodeSummary(s *domain.Summary) (sql.NullString, error) {
	if s == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeSummary(raw sql.NullString) (*domain.Summary, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var s domain.Summary
	if err := json.Unmarshal([]byte(raw.String), &s); err != nil {
		return nil, err
	}
	return &s, nil
}
