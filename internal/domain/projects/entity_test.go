package projects

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusDraft, StatusProcessing, true},
		{StatusProcessing, StatusProcessing, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusCompleted, StatusProcessing, true},
		{StatusFailed, StatusProcessing, true},
		{StatusDraft, StatusCompleted, false},
		{StatusCompleted, StatusFailed, false},
		{StatusProcessing, StatusDraft, false},
		{StatusFailed, StatusDraft, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestLeaseActive(t *testing.T) {
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	p := &Project{Status: StatusProcessing, RunID: "run-1", RunStartedAt: start}

	assert.True(t, p.LeaseActive(start.Add(time.Minute), 15*time.Minute))
	assert.False(t, p.LeaseActive(start.Add(15*time.Minute), 15*time.Minute))
	assert.True(t, p.LeaseActive(start.Add(24*time.Hour), 0), "zero ttl never expires")

	fresh := &Project{Status: StatusProcessing}
	assert.False(t, fresh.LeaseActive(start, 15*time.Minute), "no run id yet")

	done := &Project{Status: StatusCompleted, RunID: "run-1", RunStartedAt: start}
	assert.False(t, done.LeaseActive(start, 15*time.Minute))
}

func TestAnalysisOptionsWithDefaults(t *testing.T) {
	o := AnalysisOptions{}.WithDefaults()
	assert.Equal(t, DefaultFocus, o.Focus)
	assert.Equal(t, []string{DefaultDiagramType}, o.DiagramTypes)

	o = AnalysisOptions{Focus: "Data Flow", DiagramTypes: []string{"Sequence Diagram", "ER Diagram"}}.WithDefaults()
	assert.Equal(t, "Data Flow", o.Focus)
	assert.Equal(t, []string{"Sequence Diagram", "ER Diagram"}, o.DiagramTypes)
}

func TestAnalysisOptionsValidate(t *testing.T) {
	assert.NoError(t, AnalysisOptions{}.Validate())
	assert.NoError(t, AnalysisOptions{DiagramTypes: []string{"Component Diagram"}}.Validate())
	assert.EqualError(t, AnalysisOptions{DiagramTypes: []string{" ", "Sequence Diagram"}}.Validate(), "diagram type 1 is empty")

	// a blank entry is not compacted away, positions stay aligned with blocks
	o := AnalysisOptions{DiagramTypes: []string{"A", "", "C"}}.WithDefaults()
	assert.Equal(t, []string{"A", "", "C"}, o.DiagramTypes)
}

func TestSourceValidate(t *testing.T) {
	require.NoError(t, GitHubSource("https://github.com/o/r").Validate())
	require.NoError(t, UploadSource("notes.md", "hello").Validate())
	require.NoError(t, Source{Type: SourceGoogleDrive, URL: "https://drive.google.com/x"}.Validate())

	assert.Error(t, Source{Type: SourceGitHub}.Validate())
	assert.Error(t, Source{Type: SourceUpload}.Validate())
	assert.Error(t, Source{Type: "ftp", URL: "ftp://x"}.Validate())
}

func TestSourcesRoundTripKeepsVariants(t *testing.T) {
	raw, err := MarshalSources(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)

	raw, err = MarshalSources([]Source{GitHubSource("https://github.com/o/r"), UploadSource("a.txt", "body")})
	require.NoError(t, err)
	got, err := UnmarshalSources(raw)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, SourceGitHub, got[0].Type)
	assert.Equal(t, "body", got[1].Content)

	got, err = UnmarshalSources("")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestArchiveKey(t *testing.T) {
	assert.Equal(t, "projects/p1/runs/r1/transcript.md", ArchiveKey("p1", "r1", ArtifactTranscript))
	assert.True(t, ValidArtifact(ArtifactSnapshot))
	assert.False(t, ValidArtifact("../secrets"))
}
