package postgres

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

func decodeOptions(raw []byte) (domain.AnalysisOptions, error) {
	var o domain.AnalysisOptions
	if len(raw) == 0 {
		return o, nil
	}
	err := json.Unmarshal(raw, &o)
	return o, err
}

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

func decodeSummary(raw []byte) (*domain.Summary, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s domain.Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
