package parser

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/nikvoid/nndb-core/internal/model"
	"github.com/nikvoid/nndb-core/pkg/pointer"
	"github.com/nikvoid/nndb-core/pkg/slice"
)

// novelAIParser extracts metadata embedded by NovelAI's image generator
// (https://docs.novelai.net/), grounded in backend/src/import/novelai.rs.
type novelAIParser struct{}

func (novelAIParser) Source() model.Source { return model.SourceNovelAI }

func (novelAIParser) CanParse(p Prefab) bool {
	chunks := pngTextChunks(p.Data)
	return chunks["Software"] == "NovelAI"
}

type novelAIComment struct {
	Seed   int64  `json:"seed"`
	Prompt string `json:"prompt"`
}

func (novelAIParser) Parse(p Prefab) (model.ElementMetadata, error) {
	chunks := pngTextChunks(p.Data)

	prompt := chunks["Description"]
	comment := chunks["Comment"]
	if comment == "" {
		return model.ElementMetadata{}, errors.New("novelai metadata not found")
	}

	var meta novelAIComment
	if err := json.Unmarshal([]byte(comment), &meta); err != nil {
		return model.ElementMetadata{}, err
	}
	meta.Prompt = prompt

	rawMeta, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return model.ElementMetadata{}, err
	}

	names := slice.Filter(parsePrompt(prompt), func(name string) bool { return name != "" })
	tags := slice.Map(names, func(name string) model.TagSeed { return model.NewTagSeed(name, nil, model.TagTag) })
	tags = append(tags, model.NewTagSeed("novelai_generated", nil, model.TagMetadata))

	return model.ElementMetadata{
		ExtGroup: pointer.To(meta.Seed),
		RawMeta:  pointer.To(string(rawMeta)),
		Tags:     tags,
	}, nil
}

// parsePrompt mirrors novelai.rs's parse_prompt: comma-separated terms,
// brace-wrapping stripped, '|' mixed-tag segments split, ':' weight suffix
// dropped.
func parsePrompt(prompt string) []string {
	var out []string
	for _, expr := range strings.Split(prompt, ",") {
		trimmed := trimBraces(strings.TrimSpace(expr))
		if trimmed == "" {
			continue
		}
		for _, seg := range strings.Split(trimmed, "|") {
			if name, _, found := strings.Cut(seg, ":"); found {
				out = append(out, name)
			} else {
				out = append(out, seg)
			}
		}
	}
	return out
}

// trimBraces strips matching pairs of ({[ ]}) wrapping the whole string, the
// way the original's super::trim_braces does.
func trimBraces(expr string) string {
	pairs := map[byte]byte{'{': '}', '[': ']', '(': ')'}
	start, end := 0, len(expr)
	for start < end {
		open, close := expr[start], expr[end-1]
		want, ok := pairs[open]
		if !ok || close != want {
			break
		}
		start++
		end--
	}
	return expr[start:end]
}
