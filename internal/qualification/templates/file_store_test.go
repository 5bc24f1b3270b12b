package templates

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"converzia_backend/internal/qualification/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTemplates = `
templates:
  - offerType: property
    name: Desarrollos residenciales
    leadReadyThreshold: 75
    weights:
      budget: 30
      zone: 20
    rules:
      budget:
        perfect: 30
        compatible: 20
        no_data: 0
`

func TestLoadFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTemplates), 0o600))

	store, err := LoadFileStore(path)
	require.NoError(t, err)

	tpl, err := store.GlobalTemplate(context.Background(), "PROPERTY")
	require.NoError(t, err)
	assert.Equal(t, 75, tpl.LeadReadyThreshold)
	assert.Equal(t, 30, tpl.Rules[scoring.DimensionBudget][scoring.TierBudgetPerfect])
	assert.Equal(t, scoring.SourceFile, tpl.Source)

	_, err = store.GlobalTemplate(context.Background(), "LOT")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseFileStoreRejectsBadTemplates(t *testing.T) {
	cases := map[string]string{
		"missing type": "templates:\n  - leadReadyThreshold: 70\n",
		"threshold":    "templates:\n  - offerType: lot\n    leadReadyThreshold: 300\n",
		"duplicate":    "templates:\n  - offerType: lot\n  - offerType: LOT\n",
		"syntax":       "templates: [",
	}
	for name, raw := range cases {
		_, err := ParseFileStore([]byte(raw))
		assert.Error(t, err, name)
	}
}
