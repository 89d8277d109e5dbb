package fetcher

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nikvoid/nndb-core/internal/model"
	"github.com/nikvoid/nndb-core/pkg/pointer"
	"github.com/nikvoid/nndb-core/pkg/slice"
)

type illustResponse struct {
	Illust illust `json:"illust"`
}

type illust struct {
	ID         int64      `json:"id"`
	CreateDate time.Time  `json:"create_date"`
	User       illustUser `json:"user"`
	Tags       []illustTag `json:"tags"`
}

type illustUser struct {
	Name    string `json:"name"`
	Account string `json:"account"`
}

type illustTag struct {
	Name           string `json:"name"`
	TranslatedName string `json:"translated_name"`
}

// extractMetadata converts a fetched illustration into
// [model.ElementMetadata], mirroring Pixiv::extract_data in the original
// fetcher: an artist tag from the uploader, a tag per illustration tag
// (using its translated name whenever one is present, with the raw name
// kept as the alt name), and a
// pixiv_source marker tag.
func extractMetadata(il illust) model.ElementMetadata {
	raw, _ := json.Marshal(il)
	rawStr := string(raw)

	tags := []model.TagSeed{
		model.NewTagSeed("pixiv_source", nil, model.TagMetadata),
		model.NewTagSeed(il.User.Account, pointer.To(il.User.Name), model.TagArtist),
	}
	tags = append(tags, slice.Map(il.Tags, func(t illustTag) model.TagSeed {
		name := t.Name
		if t.TranslatedName != "" {
			name = t.TranslatedName
		}
		return model.NewTagSeed(name, pointer.To(t.Name), model.TagTag)
	})...)

	return model.ElementMetadata{
		SrcLink:  pointer.To(fmt.Sprintf("https://www.pixiv.net/artworks/%d", il.ID)),
		SrcTime:  pointer.To(il.CreateDate),
		ExtGroup: pointer.To(il.ID),
		RawMeta:  pointer.To(rawStr),
		Tags:     tags,
	}
}
