package query

import "strings"

// Camera is one rover camera selectable in the photo query
type Camera struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

const (
	DefaultRover     = "curiosity"
	DefaultEarthDate = "2016-08-06"
)

// roverCameras is the upstream camera whitelist per rover
var roverCameras = map[string][]Camera{
	"curiosity": {
		{ID: "FHAZ", Name: "Front Hazard Avoidance Camera"},
		{ID: "RHAZ", Name: "Rear Hazard Avoidance Camera"},
		{ID: "MAST", Name: "Mast Camera"},
		{ID: "CHEMCAM", Name: "Chemistry and Camera Complex"},
		{ID: "MAHLI", Name: "Mars Hand Lens Imager"},
		{ID: "MARDI", Name: "Mars Descent Imager"},
		{ID: "NAVCAM", Name: "Navigation Camera"},
	},
	"opportunity": {
		{ID: "FHAZ", Name: "Front Hazard Avoidance Camera"},
		{ID: "RHAZ", Name: "Rear Hazard Avoidance Camera"},
		{ID: "NAVCAM", Name: "Navigation Camera"},
		{ID: "PANCAM", Name: "Panoramic Camera"},
		{ID: "MINITES", Name: "Mini-TES"},
	},
	"spirit": {
		{ID: "FHAZ", Name: "Front Hazard Avoidance Camera"},
		{ID: "RHAZ", Name: "Rear Hazard Avoidance Camera"},
		{ID: "NAVCAM", Name: "Navigation Camera"},
		{ID: "PANCAM", Name: "Panoramic Camera"},
		{ID: "MINITES", Name: "Mini-TES"},
	},
}

// Cameras returns the camera whitelist for a rover
func Cameras(rover string) ([]Camera, bool) {
	cams, ok := roverCameras[strings.ToLower(rover)]
	if !ok {
		return nil, false
	}
	return append([]Camera(nil), cams...), true
}

// ValidCamera reports whether camera belongs to the rover's whitelist
func ValidCamera(rover, camera string) bool {
	for _, c := range roverCameras[strings.ToLower(rover)] {
		if c.ID == strings.ToUpper(camera) {
			return true
		}
	}
	return false
}
