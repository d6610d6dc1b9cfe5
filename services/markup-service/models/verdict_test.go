package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/markup-backend/services/markup-service/models"
)

func TestVerdictNormalize_OrdersAndDedupesFlags(t *testing.T) {
	v := models.Verdict{
		Category: models.CategoryExact,
		Flags:    []models.Flag{models.FlagCardMistake, models.FlagUsedItem, models.FlagCardMistake},
	}

	out, err := v.Normalize(models.TaskSearch, false)
	require.NoError(t, err)
	assert.Equal(t, []models.Flag{models.FlagUsedItem, models.FlagCardMistake}, out.Flags)
	assert.True(t, out.HasFlag(models.FlagUsedItem))
	assert.False(t, out.HasFlag(models.FlagCounterfeit))
}

func TestVerdictNormalize_EmptyCategory(t *testing.T) {
	v := models.Verdict{}

	out, err := v.Normalize(models.TaskMatching, false)
	require.NoError(t, err)
	assert.Empty(t, out.Category)
	assert.NotNil(t, out.Flags)

	_, err = v.Normalize(models.TaskMatching, true)
	assert.ErrorIs(t, err, models.ErrCategoryRequired)
}

func TestVerdictNormalize_RejectsForeignCategory(t *testing.T) {
	// "match" belongs to the matching task only.
	_, err := models.Verdict{Category: models.CategoryMatch}.Normalize(models.TaskSearch, false)
	assert.Error(t, err)

	_, err = models.Verdict{Category: models.CategoryMatch}.Normalize(models.TaskMatching, false)
	assert.NoError(t, err)
}

func TestVerdictNormalize_RejectsForeignFlag(t *testing.T) {
	v := models.Verdict{Flags: []models.Flag{models.FlagInsufficientData}}

	_, err := v.Normalize(models.TaskSearch, false)
	assert.Error(t, err)

	_, err = v.Normalize(models.TaskMatching, false)
	assert.NoError(t, err)
}
