package cache

import "fmt"

// Keyer derives cache keys.
type Keyer interface {
	// CropKey identifies the artifacts of a crop run.
	CropKey(inputHash string, opts CropKeyOpts) string
	// PreviewKey identifies a rendered preview image.
	PreviewKey(inputHash string, opts PreviewKeyOpts) string
	// JobKey identifies one artifact of a server crop job.
	JobKey(jobID, name string) string
}

// CropKeyOpts lists every option that changes crop output.
type CropKeyOpts struct {
	Rows         int     `json:"rows"`
	Columns      int     `json:"columns"`
	Top          float64 `json:"top"`
	Bottom       float64 `json:"bottom"`
	Left         float64 `json:"left"`
	Right        float64 `json:"right"`
	RowGap       float64 `json:"row_gap"`
	ColumnGap    float64 `json:"column_gap"`
	StartingPage int     `json:"starting_page"`
	Mode         string  `json:"mode"`
}

// PreviewKeyOpts lists every option that changes a preview image.
type PreviewKeyOpts struct {
	Grid   CropKeyOpts `json:"grid"`
	Page   int         `json:"page"`
	Width  int         `json:"width"`
	Height int         `json:"height"`
	LensX  float64     `json:"lens_x"`
	LensY  float64     `json:"lens_y"`
	Format string      `json:"format"`
	Zoom   bool        `json:"zoom"`
	Raster bool        `json:"raster"`
}

// DefaultKeyer produces keys of the form "kind:sha256".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) CropKey(inputHash string, opts CropKeyOpts) string {
	return hashKey("crop", inputHash, opts)
}

func (DefaultKeyer) PreviewKey(inputHash string, opts PreviewKeyOpts) string {
	return hashKey("preview", inputHash, opts)
}

func (DefaultKeyer) JobKey(jobID, name string) string {
	return fmt.Sprintf("job:%s:%s", jobID, name)
}
