package normalize

import (
	"maps"
	"slices"

	"nasa-explorer/internal/domain"
)

type neoFeed struct {
	NearEarthObjects *map[string][]neoObject `json:"near_earth_objects"`
}

type neoObject struct {
	ID                 flexString               `json:"id"`
	Name               flexString               `json:"name"`
	Designation        flexString               `json:"designation"`
	NasaJplURL         flexString               `json:"nasa_jpl_url"`
	Hazardous          lenient[bool]            `json:"is_potentially_hazardous_asteroid"`
	Sentry             lenient[bool]            `json:"is_sentry_object"`
	AbsoluteMagnitudeH flexFloat                `json:"absolute_magnitude_h"`
	EstimatedDiameter  lenient[neoDiameter]     `json:"estimated_diameter"`
	CloseApproachData  lenient[[]closeApproach] `json:"close_approach_data"`
}

type neoDiameter struct {
	Meters lenient[struct {
		Min flexFloat `json:"estimated_diameter_min"`
		Max flexFloat `json:"estimated_diameter_max"`
	}] `json:"meters"`
}

type closeApproach struct {
	Date         flexString `json:"close_approach_date"`
	DateFull     flexString `json:"close_approach_date_full"`
	OrbitingBody flexString `json:"orbiting_body"`
	MissDistance lenient[struct {
		Kilometers flexString `json:"kilometers"`
	}] `json:"miss_distance"`
	RelativeVelocity lenient[struct {
		KilometersPerHour flexString `json:"kilometers_per_hour"`
	}] `json:"relative_velocity"`
}

// decodeNeo flattens the date-keyed feed into one record per object. The
// date key stamps each record. Keys are visited in ascending order so the
// flattened sequence is deterministic.
func decodeNeo(body []byte) (domain.Normalized, error) {
	var feed neoFeed
	if err := unmarshal(body, &feed); err != nil {
		return domain.Normalized{}, err
	}
	if feed.NearEarthObjects == nil {
		return domain.Normalized{}, domain.Malformed("missing near_earth_objects", nil)
	}

	byDate := *feed.NearEarthObjects
	records := make([]domain.Record, 0)
	for _, date := range slices.Sorted(maps.Keys(byDate)) {
		for _, obj := range byDate[date] {
			records = append(records, neoRecord(date, obj))
		}
	}
	return domain.Normalized{Records: records, TotalHits: len(records)}, nil
}

func neoRecord(date string, n neoObject) domain.Record {
	var cad closeApproach
	if len(n.CloseApproachData.V) > 0 {
		cad = n.CloseApproachData.V[0]
	}
	missKm := string(cad.MissDistance.V.Kilometers)
	miss, _ := parseFinite(missKm)
	dia := n.EstimatedDiameter.V.Meters.V
	hazardous := n.Hazardous.V

	fields := []domain.Field{
		{Label: "Potentially hazardous", Value: yesNo(hazardous)},
		{Label: "Abs. mag", Value: formatFloat(n.AbsoluteMagnitudeH.ptr(), 1)},
		{Label: "Est. dia", Value: formatFloat(dia.Min.ptr(), 0) + "–" + formatFloat(dia.Max.ptr(), 0) + " m"},
		{Label: "Close date", Value: orDash(firstNonEmpty(string(cad.DateFull), string(cad.Date)))},
		{Label: "Miss dist", Value: formatKm(missKm)},
		{Label: "Rel. vel", Value: formatSpeed(string(cad.RelativeVelocity.V.KilometersPerHour))},
		{Label: "Orbiting body", Value: orDash(string(cad.OrbitingBody))},
		{Label: "Sentry object", Value: yesNo(n.Sentry.V)},
	}
	if n.NasaJplURL != "" {
		fields = append(fields, domain.Field{Label: "JPL Small-Body DB", Value: toHTTPS(string(n.NasaJplURL))})
	}

	return domain.Record{
		ID:             string(n.ID),
		Title:          firstNonEmpty(string(n.Name), string(n.Designation), "NEO"),
		PrimaryDate:    date,
		Fields:         fields,
		Hazardous:      hazardous,
		MissDistanceKm: miss,
		Brightness:     n.AbsoluteMagnitudeH.ptr(),
	}
}
