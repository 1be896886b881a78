package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type payload struct {
	Plot   string `json:"section_plot"`
	Intent string `json:"section_intent"`
}

func TestParseJSON_Bare(t *testing.T) {
	result, err := ParseJSON[payload](`{"section_plot": "a scene", "section_intent": "keep going"}`)

	assert.NoError(t, err)
	assert.Equal(t, "a scene", result.Plot)
	assert.Equal(t, "keep going", result.Intent)
}

func TestParseJSON_Fenced(t *testing.T) {
	response := "Here is the output:\n```json\n{\"section_plot\": \"a scene\", \"section_intent\": \"next\"}\n```\nDone."

	result, err := ParseJSON[payload](response)

	assert.NoError(t, err)
	assert.Equal(t, "a scene", result.Plot)
}

func TestParseJSON_SurroundingProse(t *testing.T) {
	response := `Sure! {"section_plot": "a scene", "section_intent": "next"} Hope that helps.`

	result, err := ParseJSON[payload](response)

	assert.NoError(t, err)
	assert.Equal(t, "next", result.Intent)
}

func TestParseJSON_NestedBraces(t *testing.T) {
	type timeline map[string]map[string]string
	response := `{"Alice": {"2023-05-15 14:30": "arrived at the tower"}}`

	result, err := ParseJSON[timeline](response)

	assert.NoError(t, err)
	assert.Equal(t, "arrived at the tower", result["Alice"]["2023-05-15 14:30"])
}

func TestParseJSON_NoObject(t *testing.T) {
	_, err := ParseJSON[payload]("no json here")
	assert.Error(t, err)
}

func TestParseJSON_Malformed(t *testing.T) {
	_, err := ParseJSON[payload](`{"section_plot": `)
	assert.Error(t, err)
}
