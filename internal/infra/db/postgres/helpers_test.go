package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/autoarchitect/internal/domain/projects"
)

// fakeRow fills Scan destinations in column order, the way database/sql does
// for the types the repos ask for.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(r.values))
	}
	for i, d := range dest {
		v := r.values[i]
		switch d := d.(type) {
		case *string:
			*d = v.(string)
		case *[]byte:
			if v != nil {
				*d = v.([]byte)
			}
		case *int64:
			*d = v.(int64)
		case *time.Time:
			*d = v.(time.Time)
		case *sql.NullTime:
			if v == nil {
				*d = sql.NullTime{}
			} else {
				*d = sql.NullTime{Time: v.(time.Time), Valid: true}
			}
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

func TestScanProject(t *testing.T) {
	created := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	started := created.Add(time.Minute)
	row := fakeRow{values: []any{
		"p-1", "shop", "web shop", "processing",
		[]byte(`[{"type":"github","name":"shop","url":"https://github.com/acme/shop"}]`),
		[]byte(`{"focus":"Data Flow","diagramTypes":["Sequence Diagram"]}`),
		int64(3), "run-1", started, "", created, created,
	}}

	// one scan destination per selected column
	require.Len(t, strings.Split(projectColumns, ","), len(row.values))

	p, err := scanProject(row)
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectID("p-1"), p.ID)
	assert.Equal(t, domain.StatusProcessing, p.Status)
	assert.Equal(t, domain.RunID("run-1"), p.RunID)
	assert.Equal(t, started, p.RunStartedAt)
	assert.Equal(t, int64(3), p.Version)
	require.Len(t, p.Sources, 1)
	assert.Equal(t, domain.SourceGitHub, p.Sources[0].Type)
	assert.Equal(t, []string{"Sequence Diagram"}, p.Options.DiagramTypes)
}

func TestScanProject_NullsAndErrors(t *testing.T) {
	created := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	p, err := scanProject(fakeRow{values: []any{
		"p-2", "draft", "", "draft", nil, nil, int64(0), "", nil, "", created, created,
	}})
	require.NoError(t, err)
	assert.True(t, p.RunStartedAt.IsZero())
	assert.Empty(t, p.Sources)
	assert.Empty(t, p.Options.DiagramTypes)

	_, err = scanProject(fakeRow{err: sql.ErrNoRows})
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	_, err = scanProject(fakeRow{values: []any{
		"p-3", "x", "", "draft", []byte(`[]`), []byte(`{bad`), int64(0), "", nil, "", created, created,
	}})
	assert.ErrorContains(t, err, "unmarshal options")
}

func TestSummaryColumn(t *testing.T) {
	ns, err := encodeSummary(nil)
	require.NoError(t, err)
	assert.False(t, ns.Valid)

	ns, err = encodeSummary(&domain.Summary{Text: "Layered."})
	require.NoError(t, err)
	assert.Equal(t, `{"text":"Layered."}`, ns.String)

	s, err := decodeSummary([]byte(ns.String))
	require.NoError(t, err)
	assert.Equal(t, "Layered.", s.Text)

	s, err = decodeSummary(nil)
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = decodeSummary([]byte(`"not an object"`))
	assert.Error(t, err)
}

func TestOptionsColumn(t *testing.T) {
	raw, err := encodeOptions(domain.AnalysisOptions{Focus: "Full Architecture", DiagramTypes: []string{"A", "B"}})
	require.NoError(t, err)
	o, err := decodeOptions([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, o.DiagramTypes)

	assert.False(t, nullTime(time.Time{}).Valid)
	assert.True(t, nullTime(time.Now()).Valid)
}
