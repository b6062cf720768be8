package normalize

import (
	"strings"

	"nasa-explorer/internal/domain"
)

type searchResponse struct {
	Collection *struct {
		Items    []searchItem `json:"items"`
		Metadata struct {
			TotalHits int `json:"total_hits"`
		} `json:"metadata"`
	} `json:"collection"`
}

type searchItem struct {
	Data  lenient[[]searchData] `json:"data"`
	Links lenient[[]searchLink] `json:"links"`
}

type searchData struct {
	NasaID           flexString        `json:"nasa_id"`
	Title            flexString        `json:"title"`
	Description      flexString        `json:"description"`
	DateCreated      flexString        `json:"date_created"`
	Center           flexString        `json:"center"`
	Photographer     flexString        `json:"photographer"`
	SecondaryCreator flexString        `json:"secondary_creator"`
	Keywords         lenient[[]string] `json:"keywords"`
}

type searchLink struct {
	Href flexString `json:"href"`
}

func decodeSearch(body []byte) (domain.Normalized, error) {
	var resp searchResponse
	if err := unmarshal(body, &resp); err != nil {
		return domain.Normalized{}, err
	}
	if resp.Collection == nil {
		return domain.Normalized{}, domain.Malformed("missing collection", nil)
	}

	records := make([]domain.Record, 0, len(resp.Collection.Items))
	for _, it := range resp.Collection.Items {
		records = append(records, searchRecord(it))
	}
	return domain.Normalized{Records: records, TotalHits: resp.Collection.Metadata.TotalHits}, nil
}

func searchRecord(it searchItem) domain.Record {
	var rec domain.Record
	if len(it.Data.V) > 0 {
		d := it.Data.V[0]
		keywords := d.Keywords.V
		if keywords == nil {
			keywords = []string{}
		}
		created := string(d.DateCreated)
		rec = domain.Record{
			ID:          string(d.NasaID),
			Title:       firstNonEmpty(string(d.Title), "Untitled"),
			PrimaryDate: datePart(created),
			Detail:      string(d.Description),
			Keywords:    keywords,
			Fields: []domain.Field{
				{Label: "Center", Value: string(d.Center)},
				{Label: "Photographer", Value: firstNonEmpty(string(d.Photographer), string(d.SecondaryCreator))},
				{Label: "Created", Value: created},
				{Label: "Keywords", Value: strings.Join(keywords, ", ")},
			},
		}
	} else {
		rec = domain.Record{Title: "Untitled", Fields: []domain.Field{}}
	}

	thumb := ""
	if len(it.Links.V) > 0 {
		thumb = string(it.Links.V[0].Href)
	}
	if thumb != "" {
		rec.Media = &domain.Media{Kind: domain.MediaImage, URL: toHTTPS(thumb), ThumbnailURL: toHTTPS(thumb)}
	}
	return rec
}

// datePart keeps the YYYY-MM-DD prefix of an ISO timestamp
func datePart(ts string) string {
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}
