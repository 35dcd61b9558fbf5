package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const compareReply = `{
  "similarity": 0.7,
  "common_themes": ["rocket launch"],
  "unique_to_doc1": ["launch date"],
  "unique_to_doc2": ["budget"],
  "key_differences": ["schedule versus cost"]
}`

func TestCompareCmd(t *testing.T) {
	a := setupTestApp(t, &fakeLLM{reply: compareReply})
	addTestSource(t, a, "plan.md", "The launch date is March 3 for the rocket program.")
	notes := addTestSource(t, a, "notes.md", "The rocket program budget is ten million.")

	out, err := runCLI(t, "compare", "plan.md", notes.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "plan.md vs notes.md: similarity 0.70")
	assert.Contains(t, out, "Common themes:")
	assert.Contains(t, out, "  - rocket launch")
	assert.Contains(t, out, "Only in notes.md:")
	assert.Contains(t, out, "schedule versus cost")
}

func TestCompareCmd_UnknownDocument(t *testing.T) {
	a := setupTestApp(t, &fakeLLM{reply: compareReply})
	addTestSource(t, a, "plan.md", "The launch date is March 3.")

	_, err := runCLI(t, "compare", "plan.md", "missing.md")
	assert.Error(t, err)
}

func TestCompareCmd_RequiresTwoArgs(t *testing.T) {
	setupTestApp(t, nil)

	_, err := runCLI(t, "compare", "plan.md")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg(s)")
}

func TestRelateCmd(t *testing.T) {
	t.Run("no relationships", func(t *testing.T) {
		setupTestApp(t, nil)

		out, err := runCLI(t, "relate")
		require.NoError(t, err)
		assert.Contains(t, out, "No relationships found.")
	})

	t.Run("json list", func(t *testing.T) {
		a := setupTestApp(t, nil)
		addTestSource(t, a, "plan.md", "rocket launch schedule budget engineering team")
		addTestSource(t, a, "notes.md", "rocket launch schedule budget engineering meeting")

		out, err := runCLI(t, "relate", "--json", "--min-similarity", "0.01")
		require.NoError(t, err)

		var edges []map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &edges))
		assert.NotEmpty(t, edges)
	})
}

func TestRouteCmd(t *testing.T) {
	t.Run("with provider", func(t *testing.T) {
		setupTestApp(t, &fakeLLM{})

		out, err := runCLI(t, "route", "what does my wiki say about onboarding?")
		require.NoError(t, err)
		assert.Contains(t, out, "Sources:  ")
		assert.Contains(t, out, "Model:    fake/")
	})

	t.Run("no providers is reported", func(t *testing.T) {
		setupTestApp(t, nil)

		out, err := runCLI(t, "route", "hello")
		require.NoError(t, err)
		assert.Contains(t, out, "Model:    none (")
	})

	t.Run("json", func(t *testing.T) {
		setupTestApp(t, nil)

		out, err := runCLI(t, "route", "--json", "hello")
		require.NoError(t, err)

		var decoded routeOutput
		require.NoError(t, json.Unmarshal([]byte(out), &decoded))
		require.NotNil(t, decoded.Routing)
		assert.Nil(t, decoded.Model)
		assert.NotEmpty(t, decoded.Error)
	})
}
