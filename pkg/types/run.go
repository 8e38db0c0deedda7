package types

import "time"

// CurrentRunVersion is bumped whenever the stored Run shape changes.
const CurrentRunVersion = 1

// PriceFit describes how well the price model fits its training set.
type PriceFit struct {
	TrainingPoints int     `json:"trainingPoints"`
	R2             float64 `json:"r2"`
	RMSE           float64 `json:"rmse"`
	MAE            float64 `json:"mae"`
	SupportVectors int     `json:"supportVectors"`
}

// Run is a stored forecast run.
type Run struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"createdAt"`
	Version   int             `json:"version"`
	Scenario  ScenarioConfig  `json:"scenario"`
	PriceFit  PriceFit        `json:"priceFit"`
	Annual    []AnnualSummary `json:"annual"`
	Headlines []HeadlineCheck `json:"headlines"`
}
