package parser

import "github.com/nikvoid/nndb-core/internal/model"

// passthroughParser is the fallback used when no specific generator
// signature is recognized (spec.md §4.3).
type passthroughParser struct{}

func (passthroughParser) Source() model.Source { return model.SourcePassthrough }

func (passthroughParser) CanParse(Prefab) bool { return true }

func (passthroughParser) Parse(Prefab) (model.ElementMetadata, error) {
	return model.ElementMetadata{
		Tags: []model.TagSeed{model.NewTagSeed("unknown_source", nil, model.TagMetadata)},
	}, nil
}
