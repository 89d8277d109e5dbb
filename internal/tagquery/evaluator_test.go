package tagquery_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nikvoid/nndb-core/internal/model"
	"github.com/nikvoid/nndb-core/internal/tagquery"
)

func fakeTagByName(tags map[string]model.Tag) func(context.Context, string) (model.Tag, error) {
	return func(_ context.Context, name string) (model.Tag, error) {
		if tag, ok := tags[name]; ok {
			return tag, nil
		}
		return model.Tag{}, errors.New("not found")
	}
}

func fakeAliasLookup(aliases map[string]int64) func(context.Context, string) (int64, bool) {
	return func(_ context.Context, alias string) (int64, bool) {
		id, ok := aliases[alias]
		return id, ok
	}
}

func TestEvaluator_ResolvesKnownTags(t *testing.T) {
	groupID := int64(9)
	tags := map[string]model.Tag{
		"known":   {ID: 1},
		"aliased": {ID: 2, GroupID: &groupID},
	}
	e := tagquery.NewEvaluator(fakeTagByName(tags), fakeAliasLookup(nil))

	sq := e.Evaluate(context.Background(), "known !unknown aliased")

	assert.ElementsMatch(t, []int64{1, 2}, sq.PositiveTagIDs)
	assert.False(t, sq.PositiveUnresolved)
}

func TestEvaluator_UnknownPositiveTagMatchesNothing(t *testing.T) {
	e := tagquery.NewEvaluator(fakeTagByName(nil), fakeAliasLookup(nil))

	sq := e.Evaluate(context.Background(), "nonexistent")

	assert.True(t, sq.PositiveUnresolved)
	assert.Empty(t, sq.PositiveTagIDs)
}

func TestEvaluator_UnknownNegativeTagIsDropped(t *testing.T) {
	e := tagquery.NewEvaluator(fakeTagByName(nil), fakeAliasLookup(nil))

	sq := e.Evaluate(context.Background(), "!nonexistent")

	assert.False(t, sq.PositiveUnresolved)
	assert.Empty(t, sq.NegativeTagIDs)
}

func TestEvaluator_ResolvesViaAlias(t *testing.T) {
	e := tagquery.NewEvaluator(fakeTagByName(nil), fakeAliasLookup(map[string]int64{"alt": 7}))

	sq := e.Evaluate(context.Background(), "alt !alt")

	assert.Contains(t, sq.PositiveTagIDs, int64(7))
	assert.Contains(t, sq.NegativeTagIDs, int64(7))
}

func TestEvaluator_GroupAndExtGroupAndMetaTerms(t *testing.T) {
	e := tagquery.NewEvaluator(fakeTagByName(nil), fakeAliasLookup(nil))

	sq := e.Evaluate(context.Background(), `group:5 extgroup:10 meta:"raw text"`)

	require := assert.New(t)
	require.NotNil(sq.SignatureGroup)
	require.Equal(int64(5), *sq.SignatureGroup)
	require.NotNil(sq.ExtGroup)
	require.Equal(int64(10), *sq.ExtGroup)
	require.Equal([]string{"raw text"}, sq.MetaSubstrings)
}
