package normalize

import (
	"nasa-explorer/internal/domain"
)

type marsResponse struct {
	Photos *[]marsPhoto `json:"photos"`
}

type marsPhoto struct {
	ID        flexString          `json:"id"`
	Sol       flexString          `json:"sol"`
	ImgSrc    flexString          `json:"img_src"`
	EarthDate flexString          `json:"earth_date"`
	Camera    lenient[marsCamera] `json:"camera"`
	Rover     lenient[marsRover]  `json:"rover"`
}

type marsCamera struct {
	Name     flexString `json:"name"`
	FullName flexString `json:"full_name"`
}

type marsRover struct {
	Name   flexString `json:"name"`
	Status flexString `json:"status"`
}

func decodeMars(body []byte) (domain.Normalized, error) {
	var resp marsResponse
	if err := unmarshal(body, &resp); err != nil {
		return domain.Normalized{}, err
	}
	if resp.Photos == nil {
		return domain.Normalized{}, domain.Malformed("missing photos", nil)
	}

	records := make([]domain.Record, 0, len(*resp.Photos))
	for _, p := range *resp.Photos {
		camera := firstNonEmpty(string(p.Camera.V.FullName), string(p.Camera.V.Name))
		rover := string(p.Rover.V.Name)
		earthDate := string(p.EarthDate)
		records = append(records, domain.Record{
			ID:          string(p.ID),
			Title:       firstNonEmpty(rover, "Rover") + " — " + firstNonEmpty(camera, "Camera"),
			PrimaryDate: earthDate,
			Fields: []domain.Field{
				{Label: "Rover", Value: rover},
				{Label: "Camera", Value: camera},
				{Label: "Earth date", Value: earthDate},
				{Label: "Sol", Value: string(p.Sol)},
				{Label: "Status", Value: string(p.Rover.V.Status)},
			},
			Media: &domain.Media{Kind: domain.MediaImage, URL: toHTTPS(string(p.ImgSrc))},
		})
	}
	return domain.Normalized{Records: records, TotalHits: len(records)}, nil
}
