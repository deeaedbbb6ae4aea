package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlotTypeValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		plotType PlotType
		valid    bool
	}{
		{PlotTypeMain, true},
		{PlotTypeSplit, true},
		{PlotTypeSplitSplit, true},
		{PlotTypeSplitSplitSplit, true},
		{PlotType("strip plot"), false},
		{PlotType(""), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.plotType), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.valid, tt.plotType.Valid())
		})
	}
}

func TestEnumLabels(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Split Split Plot", PlotTypeSplitSplit.Label())
	assert.Equal(t, "PGC", GermplasmTypePGC.Label())
	assert.Equal(t, "Crop", GermplasmTypeCrop.Label())
	assert.Equal(t, "PGC Clover", VariableTypePGCClover.Label())
	assert.Equal(t, "Soybean", VariableTypeSoybean.Label())
	assert.Equal(t, "In Progress", StatusInProgress.Label())
	assert.Equal(t, "Herbicide", TreatmentTypeHerbicide.Label())

	// The persisted value never changes with the label.
	assert.Equal(t, "pgc clover", string(VariableTypePGCClover))
}

func TestParseEnums(t *testing.T) {
	t.Parallel()

	pt, err := ParsePlotType("split plot")
	require.NoError(t, err)
	assert.Equal(t, PlotTypeSplit, pt)

	_, err = ParsePlotType("Split Plot")
	require.Error(t, err, "labels are not accepted as encodings")

	st, err := ParseOperationStatus("in progress")
	require.NoError(t, err)
	assert.False(t, st.Terminal())

	_, err = ParseTreatmentType("irrigation")
	assert.ErrorContains(t, err, "invalid treatment type")

	for _, s := range []string{"plot", "trial", "general"} {
		lt, err := ParseLocationType(s)
		require.NoError(t, err)
		assert.True(t, lt.Valid())
	}

	_, err = ParseAttributeDomain("plot")
	require.Error(t, err)
	_, err = ParseGermplasmType("")
	require.Error(t, err)
	vt, err := ParseVariableType("weed")
	require.NoError(t, err)
	assert.Equal(t, VariableTypeWeed, vt)
}

func TestOperationStatusTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, StatusInProgress.Terminal())
	assert.True(t, StatusSuccess.Terminal())
	assert.True(t, StatusFailure.Terminal())
}
