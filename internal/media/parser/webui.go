package parser

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/nikvoid/nndb-core/internal/model"
	"github.com/nikvoid/nndb-core/pkg/pointer"
)

// webuiParser extracts metadata embedded by AUTOMATIC1111's
// stable-diffusion-webui (backend/src/import/webui.rs).
type webuiParser struct{}

func (webuiParser) Source() model.Source { return model.SourceWebui }

func (webuiParser) CanParse(p Prefab) bool {
	params := pngTextChunks(p.Data)["parameters"]
	return params != "" && strings.Contains(params, "Negative prompt:")
}

var (
	weightRex      = regexp.MustCompile(`:-?[0-9]+(\.[0-9]+)?`)
	complicatedRex = regexp.MustCompile(`[^\\][(){}\[\]:|]`)
	escapeRex      = regexp.MustCompile(`\\(.)`)
)

func (webuiParser) Parse(p Prefab) (model.ElementMetadata, error) {
	params := pngTextChunks(p.Data)["parameters"]
	if params == "" {
		return model.ElementMetadata{}, errors.New("`parameters` field not found")
	}

	prompt, rest, _ := cutWebuiSections(params)

	tags := make([]model.TagSeed, 0, 8)
	for _, t := range parseWebuiPrompt(prompt) {
		tags = append(tags, model.NewTagSeed(t, nil, model.TagTag))
	}
	tags = append(tags, model.NewTagSeed("webui_generated", nil, model.TagMetadata))

	seed, ok := rest["Seed"]
	if !ok {
		return model.ElementMetadata{}, errors.New("Seed parameter is missing")
	}
	seedNum, err := strconv.ParseInt(seed, 10, 64)
	if err != nil {
		return model.ElementMetadata{}, err
	}

	return model.ElementMetadata{
		ExtGroup: pointer.To(seedNum),
		RawMeta:  pointer.To(params),
		Tags:     tags,
	}, nil
}

// cutWebuiSections splits the webui "parameters" text block into its
// prompt line(s) and a key/value map of the trailing comma-separated
// metadata line, per the layout documented in webui.rs's iter_metadata:
// prompt lines, "Negative prompt: ..." line, then one metadata line.
func cutWebuiSections(raw string) (prompt string, meta map[string]string, negPrompt string) {
	lines := strings.Split(raw, "\n")
	meta = make(map[string]string)

	i := 0
	var promptLines []string
	for i < len(lines) && !strings.HasPrefix(lines[i], "Negative prompt:") {
		promptLines = append(promptLines, lines[i])
		i++
	}
	prompt = strings.Join(promptLines, " ")

	var negLines []string
	for i < len(lines) && !strings.HasPrefix(lines[i], "Steps") {
		negLines = append(negLines, strings.TrimPrefix(lines[i], "Negative prompt: "))
		i++
	}
	negPrompt = strings.Join(negLines, " ")

	if i < len(lines) {
		for _, kv := range strings.Split(lines[i], ",") {
			k, v, found := strings.Cut(kv, ":")
			if found {
				meta[strings.TrimSpace(k)] = strings.TrimSpace(v)
			}
		}
	}

	return prompt, meta, negPrompt
}

// parseWebuiPrompt mirrors webui.rs's parse_prompt: split on commas, trim
// brace-wrapping, strip weight suffixes, reject anything too complex to
// split reliably, then unescape backslash-escaped punctuation.
func parseWebuiPrompt(prompt string) []string {
	var out []string
	for _, expr := range strings.Split(prompt, ",") {
		trimmed := trimBraces(strings.TrimSpace(expr))
		if trimmed == "" {
			continue
		}
		stripped := weightRex.ReplaceAllString(trimmed, "")
		if complicatedRex.MatchString(stripped) {
			continue
		}
		unescaped := escapeRex.ReplaceAllString(stripped, "$1")
		out = append(out, unescaped)
	}
	return out
}
