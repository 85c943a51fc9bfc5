package quotes

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/abhivicks22/stockpulse/utils"
)

func TestSampleConfigStartsWithoutLiveProviders(t *testing.T) {
	data, err := os.ReadFile("../config.example.yaml")
	require.NoError(t, err)

	var sample struct {
		Dev utils.Config `yaml:"dev"`
	}
	require.NoError(t, yaml.Unmarshal(data, &sample))

	assert.True(t, IsPlaceholderKey(sample.Dev.FinnhubApiKey), sample.Dev.FinnhubApiKey)
	assert.True(t, IsPlaceholderKey(sample.Dev.AlphaVantageApiKey), sample.Dev.AlphaVantageApiKey)

	s := NewServiceFromConfig(&sample.Dev)
	assert.Empty(t, s.providers)
	assert.Nil(t, s.history)
}
