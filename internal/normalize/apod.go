package normalize

import (
	"nasa-explorer/internal/domain"
)

type apodEntry struct {
	Title        string `json:"title"`
	Date         string `json:"date"`
	Explanation  string `json:"explanation"`
	MediaType    string `json:"media_type"`
	URL          string `json:"url"`
	HDURL        string `json:"hdurl"`
	ThumbnailURL string `json:"thumbnail_url"`
	Copyright    string `json:"copyright"`
}

// decodeApod turns the single APOD object into a one-element sequence
func decodeApod(body []byte) (domain.Normalized, error) {
	var a apodEntry
	if err := unmarshal(body, &a); err != nil {
		return domain.Normalized{}, err
	}
	if a.Date == "" && a.URL == "" && a.Title == "" {
		return domain.Normalized{}, domain.Malformed("empty APOD entry", nil)
	}

	fields := []domain.Field{
		{Label: "Date", Value: a.Date},
		{Label: "Media type", Value: a.MediaType},
	}
	if a.Copyright != "" {
		fields = append(fields, domain.Field{Label: "Copyright", Value: a.Copyright})
	}

	rec := domain.Record{
		ID:          a.Date,
		Title:       firstNonEmpty(a.Title, "Astronomy Picture of the Day"),
		PrimaryDate: a.Date,
		Fields:      fields,
		Detail:      a.Explanation,
		Media:       apodMedia(a),
	}
	return domain.Normalized{Records: []domain.Record{rec}, TotalHits: 1}, nil
}

func apodMedia(a apodEntry) *domain.Media {
	switch a.MediaType {
	case "image":
		u := firstNonEmpty(a.HDURL, a.URL, a.ThumbnailURL)
		if u == "" {
			return nil
		}
		return &domain.Media{Kind: domain.MediaImage, URL: toHTTPS(u)}
	case "video":
		if a.URL == "" && a.ThumbnailURL == "" {
			return nil
		}
		return &domain.Media{Kind: domain.MediaVideo, URL: toEmbed(a.URL), ThumbnailURL: toHTTPS(a.ThumbnailURL)}
	}
	return nil
}
