package domain

// AxisScale is the tick configuration for a chart axis.
type AxisScale struct {
	BeginAtZero bool `json:"beginAtZero"`
	StepSize    int  `json:"stepSize"`
	Max         int  `json:"max"`
}

// Scales holds the left (accumulation) and right (freeze count) axes.
type Scales struct {
	Left  Option[AxisScale] `json:"left"`
	Right Option[AxisScale] `json:"right"`
}

// FreezeScale is the right axis for freeze-date bars, counted in years.
var FreezeScale = AxisScale{BeginAtZero: true, StepSize: 1, Max: 10}

// ProgressScale is the percentage axis of the crop progress chart.
var ProgressScale = AxisScale{BeginAtZero: true, StepSize: 5, Max: 100}

// ScaleForCrop picks the GDD accumulation axis for a crop. Crops with longer
// seasons accumulate more degree days and get a taller axis:
//
//	300 / 3000:  Cotton
//	500 / 5000:  Corn, Peanut, Soybean, Sugar Beet, Sunflower, Tomato
//	600 / 6000:  Potato, Rice, Sorghum
//	700 / 7000:  Oat, Pea, Wheat
//	1000 / 10000: anything else
func ScaleForCrop(crop string) AxisScale {
	switch crop {
	case "Cotton":
		return AxisScale{BeginAtZero: true, StepSize: 300, Max: 3000}
	case "Corn", "Peanut", "Soybean", "Sugar Beet", "Sunflower", "Tomato":
		return AxisScale{BeginAtZero: true, StepSize: 500, Max: 5000}
	case "Potato", "Rice", "Sorghum":
		return AxisScale{BeginAtZero: true, StepSize: 600, Max: 6000}
	case "Oat", "Pea", "Wheat":
		return AxisScale{BeginAtZero: true, StepSize: 700, Max: 7000}
	default:
		return AxisScale{BeginAtZero: true, StepSize: 1000, Max: 10000}
	}
}
